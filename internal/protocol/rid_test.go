// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRIDTypeAndReference(t *testing.T) {
	rid := RID("orn:koi-net.node:my-node-123")
	assert.Equal(t, "koi-net.node", rid.Type())
	assert.Equal(t, "my-node-123", rid.Reference())
	assert.True(t, rid.Valid())
}

func TestRIDInvalid(t *testing.T) {
	assert.False(t, RID("not-an-rid").Valid())
	assert.False(t, RID("orn:only-one-colon").Valid())
}

func TestNewNodeRIDIncludesName(t *testing.T) {
	rid := NewNodeRID("my node!!")
	assert.Equal(t, RIDTypeNode, rid.Type())
	assert.Contains(t, rid.Reference(), "my-node")
}

func TestNewEdgeRIDDeterministic(t *testing.T) {
	source := NewNodeRID("a")
	target := NewNodeRID("b")

	rid1 := NewEdgeRID(source, target)
	rid2 := NewEdgeRID(source, target)
	require.Equal(t, rid1, rid2, "edge rid must be stable for a given (source, target) pair")

	reversed := NewEdgeRID(target, source)
	assert.NotEqual(t, rid1, reversed, "edge rid must be direction-sensitive")
}

func TestRIDTextMarshalRoundTrip(t *testing.T) {
	rid := NewNodeRID("round-trip")
	text, err := rid.MarshalText()
	require.NoError(t, err)

	var decoded RID
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, rid, decoded)
}
