// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

// Package queue implements the koi-net Event queues (C6): per-peer FIFOs
// split into webhook and poll queues, persisted to a single JSON file on
// shutdown and restored on startup.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/koi-net/koinode/internal/protocol"
)

const lockTimeout = 10 * time.Second

// persisted is the on-disk shape: { webhook: {RID -> [Event]}, poll: {RID -> [Event]} }.
// Only non-empty queues are persisted.
type persisted struct {
	Webhook map[protocol.RID][]protocol.Event `json:"webhook,omitempty"`
	Poll    map[protocol.RID][]protocol.Event `json:"poll,omitempty"`
}

// Queues holds the per-peer webhook and poll FIFOs.
type Queues struct {
	mu      sync.Mutex
	webhook map[protocol.RID][]protocol.Event
	poll    map[protocol.RID][]protocol.Event
}

// New returns empty Queues.
func New() *Queues {
	return &Queues{
		webhook: make(map[protocol.RID][]protocol.Event),
		poll:    make(map[protocol.RID][]protocol.Event),
	}
}

// Kind selects which of a peer's two FIFOs an operation applies to.
type Kind string

const (
	KindWebhook Kind = "webhook"
	KindPoll    Kind = "poll"
)

// Push enqueues ev onto peer's kind queue. O(1), thread-safe.
func (q *Queues) Push(kind Kind, peer protocol.RID, ev protocol.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	m := q.queueFor(kind)
	m[peer] = append(m[peer], ev)
}

// Requeue re-enqueues events at the FRONT of peer's kind queue, preserving
// their original relative order. Used when a webhook flush fails.
func (q *Queues) Requeue(kind Kind, peer protocol.RID, events []protocol.Event) {
	if len(events) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	m := q.queueFor(kind)
	m[peer] = append(append([]protocol.Event{}, events...), m[peer]...)
}

// Drain removes and returns all events queued for peer under kind, in
// FIFO order.
func (q *Queues) Drain(kind Kind, peer protocol.RID) []protocol.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	m := q.queueFor(kind)
	events := m[peer]
	delete(m, peer)
	return events
}

// DrainLimit removes and returns up to limit events queued for peer under
// kind (0 means unbounded), leaving any remainder queued in original
// order.
func (q *Queues) DrainLimit(kind Kind, peer protocol.RID, limit int) []protocol.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	m := q.queueFor(kind)
	events := m[peer]
	if limit <= 0 || limit >= len(events) {
		delete(m, peer)
		return events
	}
	m[peer] = append([]protocol.Event{}, events[limit:]...)
	return append([]protocol.Event{}, events[:limit]...)
}

// Depth returns the current queue length for peer under kind, used by the
// queue-depth metric.
func (q *Queues) Depth(kind Kind, peer protocol.RID) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queueFor(kind)[peer])
}

// cloneQueue copies a peer->events map, including the event slices
// themselves, so the result is safe to read after the source map's lock
// is released: Push can otherwise grow a slice in place within its
// existing capacity and race with a concurrent marshal of the "snapshot".
func cloneQueue(m map[protocol.RID][]protocol.Event) map[protocol.RID][]protocol.Event {
	out := make(map[protocol.RID][]protocol.Event, len(m))
	for peer, events := range m {
		out[peer] = append([]protocol.Event{}, events...)
	}
	return out
}

func (q *Queues) queueFor(kind Kind) map[protocol.RID][]protocol.Event {
	if kind == KindWebhook {
		return q.webhook
	}
	return q.poll
}

// Save persists non-empty queues to path under an advisory file lock,
// writing to a temp file followed by an atomic rename.
func (q *Queues) Save(path string) error {
	fl := flock.New(path + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquire queue lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("queue lock timeout after %v", lockTimeout)
	}
	defer fl.Unlock()

	q.mu.Lock()
	snapshot := persisted{}
	if len(q.webhook) > 0 {
		snapshot.Webhook = cloneQueue(q.webhook)
	}
	if len(q.poll) > 0 {
		snapshot.Poll = cloneQueue(q.poll)
	}
	q.mu.Unlock()

	if snapshot.Webhook == nil && snapshot.Poll == nil {
		_ = os.Remove(path)
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create queue directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".event_queues-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp queue file: %w", err)
	}
	tmpPath := tmp.Name()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write queue file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp queue file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename queue file: %w", err)
	}
	return nil
}

// Load restores queues from path, if it exists. A missing file is not an
// error — it means all queues were empty at the last shutdown.
func Load(path string) (*Queues, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("read queue file: %w", err)
	}
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse queue file: %w", err)
	}
	q := New()
	if p.Webhook != nil {
		q.webhook = p.Webhook
	}
	if p.Poll != nil {
		q.poll = p.Poll
	}
	return q, nil
}

// RestoreFrom replaces q's contents with other's, without disturbing q's
// mutex. Used to load persisted queues into an already-constructed Queues
// that other components already hold a pointer to.
func (q *Queues) RestoreFrom(other *Queues) {
	other.mu.Lock()
	webhook, poll := other.webhook, other.poll
	other.mu.Unlock()

	q.mu.Lock()
	defer q.mu.Unlock()
	q.webhook = webhook
	q.poll = poll
}
