// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koi-net/koinode/internal/graph"
	"github.com/koi-net/koinode/internal/protocol"
	"github.com/koi-net/koinode/internal/queue"
	"github.com/koi-net/koinode/internal/store"
)

func writeNode(t *testing.T, ctx context.Context, cache store.Cache, rid protocol.RID, baseURL string, nodeType protocol.NodeType) {
	t.Helper()
	contents, err := json.Marshal(protocol.NodeProfile{BaseURL: baseURL, NodeType: nodeType, Provides: protocol.Provides{State: []string{protocol.RIDTypeNode}}})
	require.NoError(t, err)
	b, err := protocol.NewBundle(rid, 1, contents)
	require.NoError(t, err)
	require.NoError(t, cache.Write(ctx, b))
}

func writeEdge(t *testing.T, ctx context.Context, cache store.Cache, source, target protocol.RID, edgeType protocol.EdgeType) {
	t.Helper()
	rid := protocol.NewEdgeRID(source, target)
	contents, err := json.Marshal(protocol.EdgeProfile{Source: source, Target: target, EdgeType: edgeType, Status: protocol.EdgeApproved, RIDTypes: []string{protocol.RIDTypeNode}})
	require.NoError(t, err)
	b, err := protocol.NewBundle(rid, 1, contents)
	require.NoError(t, err)
	require.NoError(t, cache.Write(ctx, b))
}

func TestPushEventToPrefersEdgeTypeOverNodeType(t *testing.T) {
	ctx := context.Background()
	cache := store.NewMemoryCache()
	self := protocol.NewNodeRID("self")
	peer := protocol.NewNodeRID("peer")
	writeNode(t, ctx, cache, self, "", protocol.NodeTypeFull)
	writeNode(t, ctx, cache, peer, "http://peer.invalid", protocol.NodeTypeFull)
	writeEdge(t, ctx, cache, self, peer, protocol.EdgePoll)

	g := graph.New()
	require.NoError(t, g.Generate(ctx, cache))
	n := New(self, "", g, queue.New())

	ev := protocol.NewEvent(protocol.EventNew, peer, nil, nil)
	require.NoError(t, n.PushEventTo(ctx, ev, peer, false))

	assert.Equal(t, 1, n.Queues.Depth(queue.KindPoll, peer), "an explicit POLL edge must override the peer's FULL node type")
	assert.Equal(t, 0, n.Queues.Depth(queue.KindWebhook, peer))
}

func TestPushEventToFallsBackToNodeTypeWithoutEdge(t *testing.T) {
	ctx := context.Background()
	cache := store.NewMemoryCache()
	self := protocol.NewNodeRID("self")
	peer := protocol.NewNodeRID("peer")
	writeNode(t, ctx, cache, self, "", protocol.NodeTypeFull)
	writeNode(t, ctx, cache, peer, "http://peer.invalid", protocol.NodeTypeFull)

	g := graph.New()
	require.NoError(t, g.Generate(ctx, cache))
	n := New(self, "", g, queue.New())

	ev := protocol.NewEvent(protocol.EventNew, peer, nil, nil)
	require.NoError(t, n.PushEventTo(ctx, ev, peer, false))

	assert.Equal(t, 1, n.Queues.Depth(queue.KindWebhook, peer), "a FULL peer with no explicit edge defaults to the webhook queue")
}

func TestFlushWebhookQueueSuccess(t *testing.T) {
	ctx := context.Background()
	var received protocol.BroadcastEventsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(struct{}{})
	}))
	defer server.Close()

	cache := store.NewMemoryCache()
	self := protocol.NewNodeRID("self")
	peer := protocol.NewNodeRID("peer")
	writeNode(t, ctx, cache, peer, server.URL, protocol.NodeTypeFull)

	g := graph.New()
	require.NoError(t, g.Generate(ctx, cache))
	n := New(self, "", g, queue.New())
	n.Queues.Push(queue.KindWebhook, peer, protocol.NewEvent(protocol.EventNew, peer, nil, nil))

	require.NoError(t, n.FlushWebhookQueue(ctx, peer))
	assert.Len(t, received.Events, 1)
	assert.Equal(t, 0, n.Queues.Depth(queue.KindWebhook, peer), "a successful flush must drain the queue")
}

func TestFlushWebhookQueueRequeuesOnFailure(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cache := store.NewMemoryCache()
	self := protocol.NewNodeRID("self")
	peer := protocol.NewNodeRID("peer")
	writeNode(t, ctx, cache, peer, server.URL, protocol.NodeTypeFull)

	g := graph.New()
	require.NoError(t, g.Generate(ctx, cache))
	n := New(self, "", g, queue.New())
	n.Queues.Push(queue.KindWebhook, peer, protocol.NewEvent(protocol.EventNew, peer, nil, nil))

	err := n.FlushWebhookQueue(ctx, peer)
	assert.Error(t, err)
	assert.Equal(t, 1, n.Queues.Depth(queue.KindWebhook, peer), "events must be requeued when the broadcast fails")
}

func TestFlushWebhookQueueEmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	cache := store.NewMemoryCache()
	self := protocol.NewNodeRID("self")
	peer := protocol.NewNodeRID("peer")

	g := graph.New()
	require.NoError(t, g.Generate(ctx, cache))
	n := New(self, "", g, queue.New())

	assert.NoError(t, n.FlushWebhookQueue(ctx, peer), "flushing an empty queue must not attempt to resolve a client")
}

func TestGetStateProviders(t *testing.T) {
	ctx := context.Background()
	cache := store.NewMemoryCache()
	self := protocol.NewNodeRID("self")
	fullProvider := protocol.NewNodeRID("full")
	partial := protocol.NewNodeRID("partial")
	writeNode(t, ctx, cache, fullProvider, "http://full.invalid", protocol.NodeTypeFull)
	writeNode(t, ctx, cache, partial, "", protocol.NodeTypePartial)

	g := graph.New()
	require.NoError(t, g.Generate(ctx, cache))
	n := New(self, "", g, queue.New())

	providers := n.GetStateProviders(protocol.RIDTypeNode)
	assert.Equal(t, []protocol.RID{fullProvider}, providers)
}

func TestPollNeighborsFallsBackToFirstContact(t *testing.T) {
	ctx := context.Background()
	self := protocol.NewNodeRID("self")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(protocol.PollEventsResponse{
			Events: []protocol.Event{protocol.NewEvent(protocol.EventNew, self, nil, nil)},
		})
	}))
	defer server.Close()

	g := graph.New()
	require.NoError(t, g.Generate(ctx, store.NewMemoryCache()))
	n := New(self, server.URL, g, queue.New())

	events := n.PollNeighbors(ctx)
	require.Len(t, events, 1, "with no known neighbors, PollNeighbors must fall back to the configured first contact")
}

func TestPollNeighborsSkipsUnreachablePeer(t *testing.T) {
	ctx := context.Background()
	cache := store.NewMemoryCache()
	self := protocol.NewNodeRID("self")
	unreachable := protocol.NewNodeRID("unreachable")
	writeNode(t, ctx, cache, self, "", protocol.NodeTypeFull)
	writeNode(t, ctx, cache, unreachable, "http://127.0.0.1:0", protocol.NodeTypeFull)
	writeEdge(t, ctx, cache, self, unreachable, protocol.EdgePoll)

	g := graph.New()
	require.NoError(t, g.Generate(ctx, cache))
	n := New(self, "", g, queue.New())

	assert.NotPanics(t, func() {
		events := n.PollNeighbors(ctx)
		assert.Empty(t, events, "an unreachable neighbor contributes no events but must not error out the round")
	})
}
