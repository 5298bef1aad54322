// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

// Package processor implements the koi-net Processing pipeline (C8): the
// handler-chain engine that normalizes inbound and outbound knowledge
// objects.
package processor

import (
	"context"

	"github.com/koi-net/koinode/internal/protocol"
)

// ChainType is one of the five fixed stages a KnowledgeObject passes
// through, in order.
type ChainType string

const (
	ChainRID      ChainType = "rid"
	ChainManifest ChainType = "manifest"
	ChainBundle   ChainType = "bundle"
	ChainNetwork  ChainType = "network"
	ChainFinal    ChainType = "final"
)

// HandlerFunc is a single handler invocation. It returns:
//   - (nil, false) — the knowledge object is unchanged, continue the chain
//   - (kobj, false) — the knowledge object is replaced for the rest of the chain
//   - (_, true) — STOP_CHAIN: abort the chain and the pipeline immediately
type HandlerFunc func(ctx context.Context, e *Engine, kobj protocol.KnowledgeObject) (*protocol.KnowledgeObject, bool)

// Handler is registered with filters; it only runs for knowledge objects
// matching all of its non-empty filters.
type Handler struct {
	Chain      ChainType
	RIDTypes   []string
	Source     protocol.Source // empty matches any source
	EventTypes []protocol.EventType
	Func       HandlerFunc
	Name       string
}

func (h Handler) matches(kobj protocol.KnowledgeObject) bool {
	if len(h.RIDTypes) > 0 {
		match := false
		for _, t := range h.RIDTypes {
			if t == kobj.RID.Type() {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	if h.Source != "" && h.Source != kobj.Source {
		return false
	}
	if len(h.EventTypes) > 0 {
		match := false
		for _, t := range h.EventTypes {
			if t == kobj.EventType {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	return true
}
