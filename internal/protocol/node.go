// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package protocol

// NodeType distinguishes nodes that serve HTTP (FULL) from nodes that only
// poll (PARTIAL).
type NodeType string

const (
	NodeTypeFull    NodeType = "FULL"
	NodeTypePartial NodeType = "PARTIAL"
)

// Provides lists, per concern, which RID types a node handles.
type Provides struct {
	Event []string `json:"event"`
	State []string `json:"state"`
}

// includesEvent reports whether ridType is listed in Event, treating the built-in Node
// and Edge types as implicitly provided regardless of declaration.
func (p Provides) includesEvent(ridType string) bool {
	if ridType == RIDTypeNode || ridType == RIDTypeEdge {
		return true
	}
	return contains(p.Event, ridType)
}

func (p Provides) includesState(ridType string) bool {
	if ridType == RIDTypeNode || ridType == RIDTypeEdge {
		return true
	}
	return contains(p.State, ridType)
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// NodeProfile is the contents of a Node RID's bundle.
type NodeProfile struct {
	BaseURL  string   `json:"base_url,omitempty"`
	NodeType NodeType `json:"node_type"`
	Provides Provides `json:"provides"`
}

// ProvidesEvent reports whether this node broadcasts change events for
// ridType.
func (p NodeProfile) ProvidesEvent(ridType string) bool { return p.Provides.includesEvent(ridType) }

// ProvidesState reports whether this node serves bundle/manifest fetches
// for ridType.
func (p NodeProfile) ProvidesState(ridType string) bool { return p.Provides.includesState(ridType) }
