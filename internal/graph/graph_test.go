// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package graph

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koi-net/koinode/internal/protocol"
	"github.com/koi-net/koinode/internal/store"
)

func writeNode(t *testing.T, ctx context.Context, cache store.Cache, rid protocol.RID, nodeType protocol.NodeType) {
	t.Helper()
	contents, err := json.Marshal(protocol.NodeProfile{NodeType: nodeType})
	require.NoError(t, err)
	b, err := protocol.NewBundle(rid, 1, contents)
	require.NoError(t, err)
	require.NoError(t, cache.Write(ctx, b))
}

func writeEdge(t *testing.T, ctx context.Context, cache store.Cache, source, target protocol.RID, status protocol.EdgeStatus) protocol.RID {
	t.Helper()
	rid := protocol.NewEdgeRID(source, target)
	contents, err := json.Marshal(protocol.EdgeProfile{
		Source: source, Target: target, EdgeType: protocol.EdgeWebhook, Status: status, RIDTypes: []string{protocol.RIDTypeNode},
	})
	require.NoError(t, err)
	b, err := protocol.NewBundle(rid, 1, contents)
	require.NoError(t, err)
	require.NoError(t, cache.Write(ctx, b))
	return rid
}

func TestGenerateAndNeighbors(t *testing.T) {
	ctx := context.Background()
	cache := store.NewMemoryCache()

	a := protocol.NewNodeRID("a")
	b := protocol.NewNodeRID("b")
	c := protocol.NewNodeRID("c")
	writeNode(t, ctx, cache, a, protocol.NodeTypeFull)
	writeNode(t, ctx, cache, b, protocol.NodeTypeFull)
	writeNode(t, ctx, cache, c, protocol.NodeTypePartial)

	writeEdge(t, ctx, cache, a, b, protocol.EdgeApproved)
	writeEdge(t, ctx, cache, c, a, protocol.EdgeProposed)

	g := New()
	require.NoError(t, g.Generate(ctx, cache))

	profile, ok := g.NodeProfile(a)
	require.True(t, ok)
	assert.Equal(t, protocol.NodeTypeFull, profile.NodeType)

	out := g.Neighbors(a, DirectionOut, "", "")
	assert.Equal(t, []protocol.RID{b}, out)

	in := g.Neighbors(a, DirectionIn, "", "")
	assert.Equal(t, []protocol.RID{c}, in)

	approvedOnly := g.Neighbors(a, DirectionBoth, protocol.EdgeApproved, "")
	assert.Equal(t, []protocol.RID{b}, approvedOnly)
}

func TestEdgeBetween(t *testing.T) {
	ctx := context.Background()
	cache := store.NewMemoryCache()

	a := protocol.NewNodeRID("a")
	b := protocol.NewNodeRID("b")
	writeNode(t, ctx, cache, a, protocol.NodeTypeFull)
	writeNode(t, ctx, cache, b, protocol.NodeTypeFull)
	edgeRID := writeEdge(t, ctx, cache, a, b, protocol.EdgeApproved)

	g := New()
	require.NoError(t, g.Generate(ctx, cache))

	rid, profile, ok := g.EdgeBetween(a, b)
	require.True(t, ok)
	assert.Equal(t, edgeRID, rid)
	assert.Equal(t, protocol.EdgeApproved, profile.Status)

	_, _, ok = g.EdgeBetween(b, a)
	assert.False(t, ok, "edges are directional")
}

func TestGenerateSkipsInvalidProfiles(t *testing.T) {
	ctx := context.Background()
	cache := store.NewMemoryCache()

	rid := protocol.NewNodeRID("broken")
	b, err := protocol.NewBundle(rid, 1, []byte(`{"node_type":"BOGUS"}`))
	require.NoError(t, err)
	require.NoError(t, cache.Write(ctx, b))

	g := New()
	require.NoError(t, g.Generate(ctx, cache))

	_, ok := g.NodeProfile(rid)
	assert.False(t, ok, "a node with an invalid profile must not appear in the graph")
}
