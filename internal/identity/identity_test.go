// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package identity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koi-net/koinode/internal/protocol"
	"github.com/koi-net/koinode/internal/store"
)

func TestLoadGeneratesAndPersistsIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	profile := protocol.NodeProfile{NodeType: protocol.NodeTypeFull}

	id, err := Load(path, "my-node", profile)
	require.NoError(t, err)
	assert.Equal(t, protocol.RIDTypeNode, id.RID.Type())
	assert.FileExists(t, path)

	reloaded, err := Load(path, "my-node", profile)
	require.NoError(t, err)
	assert.Equal(t, id.RID, reloaded.RID, "a second load of the same file must return the same RID")
}

func TestLoadKeepsStoredRIDOnNameMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	profile := protocol.NodeProfile{NodeType: protocol.NodeTypeFull}

	original, err := Load(path, "original-name", profile)
	require.NoError(t, err)

	renamed, err := Load(path, "different-name", profile)
	require.NoError(t, err)
	assert.Equal(t, original.RID, renamed.RID, "renaming the configured node name must not change the stored RID")
}

func TestBundleBuildsFreshWhenCacheEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	profile := protocol.NodeProfile{NodeType: protocol.NodeTypeFull}
	id, err := Load(path, "bundle-node", profile)
	require.NoError(t, err)

	ctx := context.Background()
	cache := store.NewMemoryCache()

	b, err := id.Bundle(ctx, cache)
	require.NoError(t, err)
	assert.Equal(t, id.RID, b.Manifest.RID)

	gotProfile, err := b.AsNodeProfile()
	require.NoError(t, err)
	assert.Equal(t, profile.NodeType, gotProfile.NodeType)
}

func TestBundleReturnsCachedWhenPresent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	profile := protocol.NodeProfile{NodeType: protocol.NodeTypeFull}
	id, err := Load(path, "cached-node", profile)
	require.NoError(t, err)

	ctx := context.Background()
	cache := store.NewMemoryCache()
	existing, err := protocol.NewBundle(id.RID, 42, []byte(`{"node_type":"FULL"}`))
	require.NoError(t, err)
	require.NoError(t, cache.Write(ctx, existing))

	b, err := id.Bundle(ctx, cache)
	require.NoError(t, err)
	assert.Equal(t, int64(42), b.Manifest.Timestamp, "an existing cache entry must be returned as-is, not rebuilt")
}

func TestResetRemovesFileAndIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	_, err := Load(path, "reset-node", protocol.NodeProfile{NodeType: protocol.NodeTypeFull})
	require.NoError(t, err)

	require.NoError(t, Reset(path))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	assert.NoError(t, Reset(path), "resetting an already-missing identity file is not an error")
}
