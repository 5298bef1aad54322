// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

// Package runtime implements the koi-net Node runtime (C9): the lifecycle
// that wires identity, cache, graph, queues, network, and processor
// together, and drives startup/shutdown handshakes.
package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/koi-net/koinode/internal/graph"
	"github.com/koi-net/koinode/internal/identity"
	"github.com/koi-net/koinode/internal/netclient"
	"github.com/koi-net/koinode/internal/network"
	"github.com/koi-net/koinode/internal/processor"
	"github.com/koi-net/koinode/internal/protocol"
	"github.com/koi-net/koinode/internal/queue"
	"github.com/koi-net/koinode/internal/store"
)

// Node owns a fully wired koi-net node: its identity, cache, graph,
// network, and processing engine, plus the event-queue persistence path.
type Node struct {
	Identity *identity.Identity
	Cache    store.Cache
	Network  *network.Network
	Engine   *processor.Engine

	EventQueuesPath string

	pollCancel context.CancelFunc
}

// Start brings the node online:
//  1. start the processor's worker goroutine, if configured for one
//  2. restore event queues from disk
//  3. regenerate the graph view from cache
//  4. submit this node's own bundle through the pipeline, so peers are
//     told about us the next time we broadcast
//  5. drain the queue synchronously so step 4 is visible before we return
//  6. if we have no neighbors, reach out to the configured first-contact
//     node with a self-introduction: FORGET then NEW for our own RID
func (n *Node) Start(ctx context.Context) error {
	n.Engine.Start()

	if n.EventQueuesPath != "" {
		restored, err := queue.Load(n.EventQueuesPath)
		if err != nil {
			return fmt.Errorf("runtime: load event queues: %w", err)
		}
		n.Network.Queues.RestoreFrom(restored)
	}

	if err := n.Network.Graph.Generate(ctx, n.Cache); err != nil {
		return fmt.Errorf("runtime: initial graph generation: %w", err)
	}

	selfBundle, err := n.Identity.Bundle(ctx, n.Cache)
	if err != nil {
		return fmt.Errorf("runtime: build self bundle: %w", err)
	}
	n.Engine.HandleBundle(selfBundle, protocol.EventNew, protocol.SourceInternal)
	n.Engine.FlushQueue()

	n.handshakeFirstContact(ctx)

	logrus.Infof("runtime: node %s started", n.Identity.RID)
	return nil
}

// handshakeFirstContact introduces this node to its configured
// first-contact peer if the graph has no neighbors yet — i.e. this is a
// fresh node with nothing cached but its own identity.
func (n *Node) handshakeFirstContact(ctx context.Context) {
	if n.Network.FirstContact == "" {
		return
	}
	if neighbors := n.Network.Graph.Neighbors(n.Identity.RID, graph.DirectionBoth, "", ""); len(neighbors) > 0 {
		return
	}

	logrus.Infof("runtime: no known neighbors, introducing ourselves to first contact %s", n.Network.FirstContact)

	selfBundle, err := n.Identity.Bundle(ctx, n.Cache)
	if err != nil {
		logrus.Warnf("runtime: build self bundle for handshake: %v", err)
		return
	}

	introCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	for _, ev := range n.Network.PollNeighbors(introCtx) {
		n.Engine.HandleEvent(ev, protocol.SourceExternal)
	}

	intro := []protocol.Event{
		protocol.NewEvent(protocol.EventForget, n.Identity.RID, nil, nil),
		protocol.NewEvent(protocol.EventNew, n.Identity.RID, &selfBundle.Manifest, selfBundle.Contents),
	}
	if err := netclient.New(n.Network.FirstContact).BroadcastEvents(introCtx, intro); err != nil {
		logrus.Warnf("runtime: first contact %s unreachable: %v", n.Network.FirstContact, err)
	}
	n.Engine.FlushQueue()
}

// StartPollLoop launches a background goroutine that calls PollNeighbors
// every interval, feeding whatever events come back through the
// processing pipeline as external events. Call Stop (or cancel ctx) to
// end it.
func (n *Node) StartPollLoop(ctx context.Context, interval time.Duration) {
	pollCtx, cancel := context.WithCancel(ctx)
	n.pollCancel = cancel

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				for _, ev := range n.Network.PollNeighbors(pollCtx) {
					n.Engine.HandleEvent(ev, protocol.SourceExternal)
				}
			}
		}
	}()
}

// Stop takes the node offline: stop the poll loop and worker (draining
// whatever is still queued), then persist event queues to disk so they
// survive a restart.
func (n *Node) Stop() error {
	if n.pollCancel != nil {
		n.pollCancel()
	}
	n.Engine.Stop()

	if n.EventQueuesPath != "" {
		if err := n.Network.Queues.Save(n.EventQueuesPath); err != nil {
			return fmt.Errorf("runtime: save event queues: %w", err)
		}
	}

	logrus.Infof("runtime: node %s stopped", n.Identity.RID)
	return nil
}
