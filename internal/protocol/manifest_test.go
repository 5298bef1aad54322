// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBundleStampsDigest(t *testing.T) {
	rid := NewNodeRID("bundle-node")
	contents := json.RawMessage(`{"node_type":"FULL"}`)

	b, err := NewBundle(rid, 100, contents)
	require.NoError(t, err)

	assert.Equal(t, rid, b.Manifest.RID)
	assert.Equal(t, int64(100), b.Manifest.Timestamp)
	assert.NotEmpty(t, b.Manifest.ContentDigest)
}

func TestManifestEquivalent(t *testing.T) {
	rid := NewNodeRID("a")
	b1, err := NewBundle(rid, 100, json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	b2, err := NewBundle(rid, 200, json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	b3, err := NewBundle(rid, 300, json.RawMessage(`{"x":2}`))
	require.NoError(t, err)

	assert.True(t, b1.Manifest.Equivalent(b2.Manifest), "identical contents at different timestamps are still equivalent")
	assert.False(t, b1.Manifest.Equivalent(b3.Manifest))
}

func TestManifestNewerThan(t *testing.T) {
	older := Manifest{Timestamp: 100}
	newer := Manifest{Timestamp: 200}

	assert.True(t, newer.NewerThan(older))
	assert.False(t, older.NewerThan(newer))
	assert.False(t, older.NewerThan(older), "equal timestamps are never newer than each other")
}

func TestBundleAsNodeProfile(t *testing.T) {
	contents := json.RawMessage(`{"node_type":"FULL","provides":{"event":["koi-net.node"],"state":[]}}`)
	b := Bundle{Manifest: Manifest{RID: NewNodeRID("n")}, Contents: contents}

	profile, err := b.AsNodeProfile()
	require.NoError(t, err)
	assert.Equal(t, NodeTypeFull, profile.NodeType)
	assert.Equal(t, []string{"koi-net.node"}, profile.Provides.Event)
}

func TestBundleAsNodeProfileRejectsUnknownType(t *testing.T) {
	contents := json.RawMessage(`{"node_type":"BOGUS"}`)
	b := Bundle{Contents: contents}

	_, err := b.AsNodeProfile()
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBundleAsEdgeProfileRejectsSelfLoop(t *testing.T) {
	self := NewNodeRID("loop")
	contents, err := json.Marshal(EdgeProfile{Source: self, Target: self, EdgeType: EdgeWebhook, Status: EdgeApproved})
	require.NoError(t, err)
	b := Bundle{Contents: contents}

	_, err = b.AsEdgeProfile()
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBundleAsEdgeProfileValid(t *testing.T) {
	source := NewNodeRID("source")
	target := NewNodeRID("target")
	contents, err := json.Marshal(EdgeProfile{
		Source: source, Target: target, EdgeType: EdgePoll, Status: EdgeProposed, RIDTypes: []string{"koi-net.node"},
	})
	require.NoError(t, err)
	b := Bundle{Contents: contents}

	edge, err := b.AsEdgeProfile()
	require.NoError(t, err)
	assert.Equal(t, source, edge.Source)
	assert.Equal(t, target, edge.Target)
	assert.True(t, edge.CarriesType("koi-net.node"))
}
