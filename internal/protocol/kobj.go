// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package protocol

import "encoding/json"

// Source identifies where a KnowledgeObject originated.
type Source string

const (
	SourceInternal Source = "Internal"
	SourceExternal Source = "External"
)

// KnowledgeObject is the in-flight envelope carried through the processing
// pipeline. It is created at pipeline entry, copied (never mutated in
// place) by each handler, and discarded after the final handler.
type KnowledgeObject struct {
	RID                  RID
	Manifest             *Manifest
	Contents             json.RawMessage
	EventType            EventType
	NormalizedEventType   EventType
	Source               Source
	NetworkTargets       map[RID]struct{}
}

// Copy returns a shallow copy of k, so a handler's mutations don't
// retroactively affect prior handlers in the same chain.
func (k KnowledgeObject) Copy() KnowledgeObject {
	cp := k
	if k.Manifest != nil {
		m := *k.Manifest
		cp.Manifest = &m
	}
	if k.NetworkTargets != nil {
		cp.NetworkTargets = make(map[RID]struct{}, len(k.NetworkTargets))
		for rid := range k.NetworkTargets {
			cp.NetworkTargets[rid] = struct{}{}
		}
	}
	return cp
}

// AddTarget records peer as a network broadcast target.
func (k *KnowledgeObject) AddTarget(peer RID) {
	if k.NetworkTargets == nil {
		k.NetworkTargets = make(map[RID]struct{})
	}
	k.NetworkTargets[peer] = struct{}{}
}

// Targets returns the set of network targets as a slice.
func (k KnowledgeObject) Targets() []RID {
	out := make([]RID, 0, len(k.NetworkTargets))
	for rid := range k.NetworkTargets {
		out = append(out, rid)
	}
	return out
}

// Bundle returns the manifest+contents pair carried on k, if both are
// present.
func (k KnowledgeObject) Bundle() (Bundle, bool) {
	if k.Manifest == nil || k.Contents == nil {
		return Bundle{}, false
	}
	return Bundle{Manifest: *k.Manifest, Contents: k.Contents}, true
}

// FromEvent builds the initial KnowledgeObject for an inbound/outbound
// Event.
func FromEvent(ev Event, source Source) KnowledgeObject {
	return KnowledgeObject{
		RID:        ev.RID,
		Manifest:   ev.Manifest,
		Contents:   ev.Contents,
		EventType:  ev.EventType,
		Source:     source,
	}
}

// ToEvent renders k as an outbound Event using its normalized event type.
func (k KnowledgeObject) ToEvent() Event {
	et := k.NormalizedEventType
	if et == "" {
		et = k.EventType
	}
	ev := Event{RID: k.RID, EventType: et}
	if et != EventForget {
		ev.Manifest = k.Manifest
		ev.Contents = k.Contents
	}
	return ev
}
