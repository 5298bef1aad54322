// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package protocol

import "encoding/json"

// EventType is the kind of change notification carried by an Event.
type EventType string

const (
	EventNew    EventType = "NEW"
	EventUpdate EventType = "UPDATE"
	EventForget EventType = "FORGET"
)

// Event is a change notification. FORGET events carry only the RID;
// NEW/UPDATE should carry at least the manifest and may carry contents
// inline.
type Event struct {
	RID       RID             `json:"rid"`
	EventType EventType       `json:"event_type"`
	Manifest  *Manifest       `json:"manifest,omitempty"`
	Contents  json.RawMessage `json:"contents,omitempty"`
}

// NewEvent builds an Event of the given type for rid, optionally carrying
// a manifest and contents (both nil for FORGET).
func NewEvent(eventType EventType, rid RID, manifest *Manifest, contents json.RawMessage) Event {
	return Event{RID: rid, EventType: eventType, Manifest: manifest, Contents: contents}
}
