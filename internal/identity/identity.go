// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

// Package identity implements the koi-net Identity component (C3): this
// node's RID, profile, and self-bundle, persisted across restarts.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/koi-net/koinode/internal/protocol"
	"github.com/koi-net/koinode/internal/store"
)

const lockTimeout = 10 * time.Second

// file is the on-disk representation {rid, profile}.
type file struct {
	RID     protocol.RID          `json:"rid"`
	Profile protocol.NodeProfile  `json:"profile"`
}

// Identity holds this node's RID and profile, loaded from or written to a
// persisted identity file.
type Identity struct {
	RID     protocol.RID
	Profile protocol.NodeProfile

	path string
}

// Load reads the identity file at path. If absent, it generates a new
// Node RID from name (its slug plus a random UUID), stores it with profile,
// and writes the file; later loads return that stored RID. If the
// configured name no longer matches the stored RID's human-readable
// prefix, it logs a loud warning but keeps the stored RID — changing the
// RID is a network-visible act that must be explicit (delete the file).
func Load(path string, name string, profile protocol.NodeProfile) (*Identity, error) {
	lockPath := path + ".lock"
	fl := flock.New(lockPath)

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("acquire identity lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("identity lock timeout after %v", lockTimeout)
	}
	defer fl.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read identity file: %w", err)
		}
		rid := protocol.NewNodeRID(name)
		id := &Identity{RID: rid, Profile: profile, path: path}
		if err := id.writeLocked(); err != nil {
			return nil, err
		}
		return id, nil
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse identity file: %w", err)
	}

	if want := namePrefix(name); !hasPrefix(f.RID.Reference(), want) {
		logrus.Warnf("identity: configured node name %q does not match stored identity %s; keeping stored RID (delete %s to change it)", name, f.RID, path)
	}

	return &Identity{RID: f.RID, Profile: f.Profile, path: path}, nil
}

// namePrefix returns the slug a fresh NewNodeRID(name) would use, i.e. the
// reference with its trailing "-<uuid>" suffix removed.
func namePrefix(name string) string {
	ref := protocol.NewNodeRID(name).Reference()
	if idx := len(ref) - 36; idx > 0 && ref[idx-1] == '-' { // 36-char uuid, preceded by "-"
		return ref[:idx-1]
	}
	return ref
}

func hasPrefix(ref, prefix string) bool {
	return len(ref) >= len(prefix) && ref[:len(prefix)] == prefix
}

func (id *Identity) writeLocked() error {
	dir := filepath.Dir(id.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create identity directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".identity-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp identity file: %w", err)
	}
	tmpPath := tmp.Name()

	data, err := json.MarshalIndent(file{RID: id.RID, Profile: id.Profile}, "", "  ")
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write identity file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp identity file: %w", err)
	}
	if err := os.Rename(tmpPath, id.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename identity file: %w", err)
	}
	return nil
}

// Bundle returns the self-bundle from cache, building a fresh one if the
// cache has no entry for this node's RID yet.
func (id *Identity) Bundle(ctx context.Context, cache store.Cache) (protocol.Bundle, error) {
	b, ok, err := cache.Read(ctx, id.RID)
	if err != nil {
		return protocol.Bundle{}, fmt.Errorf("read self bundle: %w", err)
	}
	if ok {
		return b, nil
	}
	contents, err := json.Marshal(id.Profile)
	if err != nil {
		return protocol.Bundle{}, err
	}
	return protocol.NewBundle(id.RID, time.Now().Unix(), contents)
}

// Reset deletes the identity file at path. Used by the `koinode identity
// reset` CLI command after an interactive confirmation.
func Reset(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove identity file: %w", err)
	}
	return nil
}
