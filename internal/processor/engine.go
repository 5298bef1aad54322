// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package processor

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/koi-net/koinode/internal/identity"
	"github.com/koi-net/koinode/internal/network"
	"github.com/koi-net/koinode/internal/protocol"
	"github.com/koi-net/koinode/internal/store"
)

// Metrics is the subset of Prometheus collectors the pipeline updates.
// Nil-safe so callers that don't want metrics can omit it.
type Metrics struct {
	Handled *prometheus.CounterVec // labels: event_type, source, outcome
}

func (m *Metrics) recordHandled(eventType protocol.EventType, source protocol.Source, outcome string) {
	if m == nil || m.Handled == nil {
		return
	}
	m.Handled.WithLabelValues(string(eventType), string(source), outcome).Inc()
}

// Engine is the koi-net Processing pipeline (C8). It owns the handler
// registry and a single FIFO of pending knowledge objects, supporting both
// a cooperative (caller-driven) and a worker-goroutine consumption model.
type Engine struct {
	Cache    store.Cache
	Network  *network.Network
	Identity *identity.Identity
	Metrics  *Metrics

	handlers []Handler

	queueMu sync.Mutex
	queue   []protocol.KnowledgeObject
	notify  chan struct{}

	useWorker  bool
	stopCh     chan struct{}
	workerDone chan struct{}
}

// New returns an Engine with no handlers registered. Callers should
// register the default handlers (see RegisterDefaultHandlers) plus any
// application-specific ones before calling Start.
func New(cache store.Cache, net *network.Network, id *identity.Identity, useWorker bool) *Engine {
	return &Engine{
		Cache:     cache,
		Network:   net,
		Identity:  id,
		useWorker: useWorker,
		notify:    make(chan struct{}, 1),
	}
}

// AddHandler appends handler to the registry. Handlers run in registration
// order within their chain.
func (e *Engine) AddHandler(h Handler) {
	e.handlers = append(e.handlers, h)
}

// Start launches the worker goroutine if this engine is configured in
// worker-thread mode. In cooperative mode it is a no-op — callers drive
// the pipeline with FlushQueue.
func (e *Engine) Start() {
	if !e.useWorker {
		return
	}
	e.stopCh = make(chan struct{})
	e.workerDone = make(chan struct{})
	go e.workerLoop()
}

// Stop signals the worker (if running) to drain the queue and exit, and
// waits for it to finish. In cooperative mode it drains the queue
// synchronously on the caller's goroutine.
func (e *Engine) Stop() {
	if !e.useWorker {
		e.FlushQueue()
		return
	}
	close(e.stopCh)
	<-e.workerDone
}

func (e *Engine) workerLoop() {
	defer close(e.workerDone)
	for {
		select {
		case <-e.stopCh:
			e.FlushQueue()
			return
		case <-e.notify:
			e.FlushQueue()
		}
	}
}

func (e *Engine) enqueue(kobj protocol.KnowledgeObject) {
	e.queueMu.Lock()
	e.queue = append(e.queue, kobj)
	e.queueMu.Unlock()
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

func (e *Engine) dequeue() (protocol.KnowledgeObject, bool) {
	e.queueMu.Lock()
	defer e.queueMu.Unlock()
	if len(e.queue) == 0 {
		return protocol.KnowledgeObject{}, false
	}
	kobj := e.queue[0]
	e.queue = e.queue[1:]
	return kobj, true
}

// FlushQueue drains and processes every knowledge object currently queued.
// In worker-thread mode this is called internally by the worker goroutine;
// it is exported for cooperative-mode callers (and for embedding/test use)
// and is ONLY safe to call directly when the caller guarantees no
// concurrent FlushQueue/worker is running at the same time.
func (e *Engine) FlushQueue() {
	for {
		kobj, ok := e.dequeue()
		if !ok {
			return
		}
		e.process(context.Background(), kobj)
	}
}

// Handle enqueues kobj as it is; HandleRID, HandleBundle and HandleEvent
// build the KnowledgeObject from their inputs first. It is safe to call concurrently from multiple
// goroutines (e.g. HTTP handlers) regardless of queue discipline.
func (e *Engine) Handle(kobj protocol.KnowledgeObject) {
	logrus.Debugf("processor: queued %s %s (source=%s)", kobj.EventType, kobj.RID, kobj.Source)
	e.enqueue(kobj)
}

// HandleRID queues a bare RID reference, e.g. for a FORGET.
func (e *Engine) HandleRID(rid protocol.RID, eventType protocol.EventType, source protocol.Source) {
	e.Handle(protocol.KnowledgeObject{RID: rid, EventType: eventType, Source: source})
}

// HandleBundle queues a full bundle.
func (e *Engine) HandleBundle(bundle protocol.Bundle, eventType protocol.EventType, source protocol.Source) {
	m := bundle.Manifest
	e.Handle(protocol.KnowledgeObject{
		RID: bundle.Manifest.RID, Manifest: &m, Contents: bundle.Contents,
		EventType: eventType, Source: source,
	})
}

// HandleEvent queues an inbound/outbound Event.
func (e *Engine) HandleEvent(ev protocol.Event, source protocol.Source) {
	e.Handle(protocol.FromEvent(ev, source))
}
