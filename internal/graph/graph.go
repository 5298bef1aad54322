// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

// Package graph implements the koi-net Graph view (C4): an in-memory
// directed graph of known nodes and approved/proposed edges, derived from
// the cache and rebuilt whole on any Node or Edge change.
//
// No external graph library is used: the operations required here are a
// handful of linear scans over an already-small local cache, so this
// package is deliberately standard-library only (see DESIGN.md).
package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/koi-net/koinode/internal/protocol"
	"github.com/koi-net/koinode/internal/store"
)

// Direction filters edges/neighbors relative to a node.
type Direction string

const (
	DirectionIn   Direction = "in"
	DirectionOut  Direction = "out"
	DirectionBoth Direction = "both"
)

type edgeEntry struct {
	rid     protocol.RID
	profile protocol.EdgeProfile
}

// Graph is the in-memory directed graph of nodes and edges.
type Graph struct {
	mu    sync.RWMutex
	nodes map[protocol.RID]protocol.NodeProfile
	edges map[protocol.RID]protocol.EdgeProfile
	out   map[protocol.RID][]edgeEntry
	in    map[protocol.RID][]edgeEntry
}

// New returns an empty Graph; call Generate to populate it.
func New() *Graph {
	return &Graph{
		nodes: make(map[protocol.RID]protocol.NodeProfile),
		edges: make(map[protocol.RID]protocol.EdgeProfile),
		out:   make(map[protocol.RID][]edgeEntry),
		in:    make(map[protocol.RID][]edgeEntry),
	}
}

// Generate rebuilds the whole graph from cache. This is O(|cache|) but
// simple and avoids subtle invalidation bugs.
func (g *Graph) Generate(ctx context.Context, cache store.Cache) error {
	nodeRIDs, err := cache.List(ctx, []string{protocol.RIDTypeNode})
	if err != nil {
		return fmt.Errorf("list node rids: %w", err)
	}
	edgeRIDs, err := cache.List(ctx, []string{protocol.RIDTypeEdge})
	if err != nil {
		return fmt.Errorf("list edge rids: %w", err)
	}

	nodes := make(map[protocol.RID]protocol.NodeProfile, len(nodeRIDs))
	for _, rid := range nodeRIDs {
		b, ok, err := cache.Read(ctx, rid)
		if err != nil {
			return fmt.Errorf("read node %s: %w", rid, err)
		}
		if !ok {
			logrus.Warnf("graph: node %s listed but not found in cache, skipping", rid)
			continue
		}
		profile, err := b.AsNodeProfile()
		if err != nil {
			logrus.Warnf("graph: node %s has invalid profile, skipping: %v", rid, err)
			continue
		}
		nodes[rid] = profile
	}

	edges := make(map[protocol.RID]protocol.EdgeProfile, len(edgeRIDs))
	out := make(map[protocol.RID][]edgeEntry)
	in := make(map[protocol.RID][]edgeEntry)
	for _, rid := range edgeRIDs {
		b, ok, err := cache.Read(ctx, rid)
		if err != nil {
			return fmt.Errorf("read edge %s: %w", rid, err)
		}
		if !ok {
			logrus.Warnf("graph: edge %s listed but not found in cache, skipping", rid)
			continue
		}
		profile, err := b.AsEdgeProfile()
		if err != nil {
			logrus.Warnf("graph: edge %s has invalid profile, skipping: %v", rid, err)
			continue
		}
		edges[rid] = profile
		entry := edgeEntry{rid: rid, profile: profile}
		out[profile.Source] = append(out[profile.Source], entry)
		in[profile.Target] = append(in[profile.Target], entry)
	}

	g.mu.Lock()
	g.nodes = nodes
	g.edges = edges
	g.out = out
	g.in = in
	g.mu.Unlock()
	return nil
}

// NodeProfile resolves a Node RID's profile.
func (g *Graph) NodeProfile(rid protocol.RID) (protocol.NodeProfile, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.nodes[rid]
	return p, ok
}

// AllNodes returns a copy of the current node-profile set.
func (g *Graph) AllNodes() map[protocol.RID]protocol.NodeProfile {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[protocol.RID]protocol.NodeProfile, len(g.nodes))
	for rid, p := range g.nodes {
		out[rid] = p
	}
	return out
}

// EdgeProfile resolves an Edge RID's profile.
func (g *Graph) EdgeProfile(rid protocol.RID) (protocol.EdgeProfile, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.edges[rid]
	return p, ok
}

// EdgeBetween resolves the edge profile between an ordered (source, target)
// pair, if one exists.
func (g *Graph) EdgeBetween(source, target protocol.RID) (protocol.RID, protocol.EdgeProfile, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, e := range g.out[source] {
		if e.profile.Target == target {
			return e.rid, e.profile, true
		}
	}
	return "", protocol.EdgeProfile{}, false
}

// Edges returns the edge RIDs touching node in the given direction.
func (g *Graph) Edges(node protocol.RID, direction Direction) []protocol.RID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []protocol.RID
	if direction == DirectionOut || direction == DirectionBoth {
		for _, e := range g.out[node] {
			out = append(out, e.rid)
		}
	}
	if direction == DirectionIn || direction == DirectionBoth {
		for _, e := range g.in[node] {
			out = append(out, e.rid)
		}
	}
	return out
}

// Neighbors returns the peer RIDs reachable from node, filtered by
// direction, edge status, and (if non-empty) whether the edge carries
// allowedType.
func (g *Graph) Neighbors(node protocol.RID, direction Direction, status protocol.EdgeStatus, allowedType string) []protocol.RID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []protocol.RID
	consider := func(e edgeEntry, peer protocol.RID) {
		if status != "" && e.profile.Status != status {
			return
		}
		if allowedType != "" && !e.profile.CarriesType(allowedType) {
			return
		}
		out = append(out, peer)
	}

	if direction == DirectionOut || direction == DirectionBoth {
		for _, e := range g.out[node] {
			consider(e, e.profile.Target)
		}
	}
	if direction == DirectionIn || direction == DirectionBoth {
		for _, e := range g.in[node] {
			consider(e, e.profile.Source)
		}
	}
	return out
}
