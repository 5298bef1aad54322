// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

// Package store implements the koi-net Cache (C2): a durable key/value
// store from RID to Bundle, enumerable by RID type.
package store

import (
	"context"

	"github.com/koi-net/koinode/internal/protocol"
)

// Cache is a durable key-value store keyed by RID. write is atomic w.r.t.
// other read/write/delete of the same key; list may be eventually
// consistent with recent writes but MUST eventually include them; delete
// of an absent key is a no-op, not an error.
type Cache interface {
	Read(ctx context.Context, rid protocol.RID) (protocol.Bundle, bool, error)
	Write(ctx context.Context, bundle protocol.Bundle) error
	Delete(ctx context.Context, rid protocol.RID) error
	Exists(ctx context.Context, rid protocol.RID) (bool, error)
	// List enumerates cached RIDs, optionally filtered by type. A nil or
	// empty ridTypes lists everything.
	List(ctx context.Context, ridTypes []string) ([]protocol.RID, error)
	Close() error
}
