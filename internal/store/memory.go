// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sync"

	"github.com/koi-net/koinode/internal/protocol"
)

// MemoryCache is an in-process, map-backed Cache implementation. It backs
// the --memory CLI flag for local experimentation and is the Cache used
// throughout the test suite so pipeline/network tests don't need a real
// database.
type MemoryCache struct {
	mu      sync.RWMutex
	bundles map[protocol.RID]protocol.Bundle
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{bundles: make(map[protocol.RID]protocol.Bundle)}
}

func (c *MemoryCache) Close() error { return nil }

func (c *MemoryCache) Read(_ context.Context, rid protocol.RID) (protocol.Bundle, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bundles[rid]
	return b, ok, nil
}

func (c *MemoryCache) Write(_ context.Context, bundle protocol.Bundle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bundles[bundle.Manifest.RID] = bundle
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, rid protocol.RID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bundles, rid)
	return nil
}

func (c *MemoryCache) Exists(_ context.Context, rid protocol.RID) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.bundles[rid]
	return ok, nil
}

func (c *MemoryCache) List(_ context.Context, ridTypes []string) ([]protocol.RID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	allowed := make(map[string]struct{}, len(ridTypes))
	for _, t := range ridTypes {
		allowed[t] = struct{}{}
	}

	out := make([]protocol.RID, 0, len(c.bundles))
	for rid := range c.bundles {
		if len(allowed) > 0 {
			if _, ok := allowed[rid.Type()]; !ok {
				continue
			}
		}
		out = append(out, rid)
	}
	return out, nil
}
