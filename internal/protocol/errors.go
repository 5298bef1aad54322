// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package protocol

import "errors"

// Sentinel errors for the koinode error taxonomy. Call sites wrap these
// with fmt.Errorf("...: %w", ...) so errors.Is works end-to-end.
var (
	// ErrPeerUnreachable is a DNS/connect failure talking to a peer.
	ErrPeerUnreachable = errors.New("peer unreachable")
	// ErrInvalidTarget is an attempt to POST to a PARTIAL node.
	ErrInvalidTarget = errors.New("invalid target: node is PARTIAL")
	// ErrNotFound is a requested RID not present in the cache or not
	// fetchable from any provider.
	ErrNotFound = errors.New("not found")
	// ErrValidation is a malformed request or bundle.
	ErrValidation = errors.New("validation failed")
	// ErrEdgeRejected is a semantic edge-negotiation rejection.
	ErrEdgeRejected = errors.New("edge rejected")
	// ErrStale is knowledge dropped by the dedup rule. No function returns
	// it: the dedup handler stops the chain with its stop flag instead.
	ErrStale = errors.New("stale knowledge")
)
