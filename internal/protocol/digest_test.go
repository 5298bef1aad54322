// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentDigestKeyOrderInvariant(t *testing.T) {
	a := json.RawMessage(`{"b":2,"a":1,"c":{"y":2,"x":1}}`)
	b := json.RawMessage(`{"a":1,"c":{"x":1,"y":2},"b":2}`)

	da, err := ContentDigest(a)
	require.NoError(t, err)
	db, err := ContentDigest(b)
	require.NoError(t, err)

	assert.Equal(t, da, db, "semantically identical objects must digest the same regardless of key order")
}

func TestContentDigestDistinguishesValues(t *testing.T) {
	a := json.RawMessage(`{"a":1}`)
	b := json.RawMessage(`{"a":2}`)

	da, err := ContentDigest(a)
	require.NoError(t, err)
	db, err := ContentDigest(b)
	require.NoError(t, err)

	assert.NotEqual(t, da, db)
}

func TestContentDigestArrayOrderSensitive(t *testing.T) {
	a := json.RawMessage(`[1,2,3]`)
	b := json.RawMessage(`[3,2,1]`)

	da, err := ContentDigest(a)
	require.NoError(t, err)
	db, err := ContentDigest(b)
	require.NoError(t, err)

	assert.NotEqual(t, da, db, "array element order is significant, unlike object key order")
}

func TestContentDigestInvalidJSON(t *testing.T) {
	_, err := ContentDigest(json.RawMessage(`not json`))
	assert.Error(t, err)
}
