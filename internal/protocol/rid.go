// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package protocol

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Well-known RID type namespaces. Every node implicitly provides these two
// regardless of what it declares in its Node profile.
const (
	RIDTypeNode = "koi-net.node"
	RIDTypeEdge = "koi-net.edge"
)

// RID is a typed, globally unique, parseable resource identifier of the
// form "orn:<namespace>:<reference>". It satisfies encoding.TextMarshaler
// so it round-trips through JSON and is directly usable as a map key.
type RID string

// NewRID builds an RID from a namespace and a reference.
func NewRID(namespace, reference string) RID {
	return RID(fmt.Sprintf("orn:%s:%s", namespace, reference))
}

// Type returns the RID's namespace, e.g. "koi-net.node".
func (r RID) Type() string {
	parts := strings.SplitN(string(r), ":", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// Reference returns the RID's reference component.
func (r RID) Reference() string {
	parts := strings.SplitN(string(r), ":", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

// Valid reports whether r parses as "orn:<namespace>:<reference>".
func (r RID) Valid() bool {
	parts := strings.SplitN(string(r), ":", 3)
	return len(parts) == 3 && parts[0] == "orn" && parts[1] != "" && parts[2] != ""
}

func (r RID) String() string { return string(r) }

func (r RID) MarshalText() ([]byte, error) { return []byte(r), nil }

func (r *RID) UnmarshalText(b []byte) error {
	*r = RID(b)
	return nil
}

// NewNodeRID generates a Node RID from a human-readable name: a slugified
// name followed by a freshly generated UUIDv4 suffix, e.g.
// "orn:koi-net.node:my-node-<uuid>". Each call returns a different RID.
func NewNodeRID(name string) RID {
	return NewRID(RIDTypeNode, fmt.Sprintf("%s-%s", slug(name), uuid.NewString()))
}

// NewEdgeRID derives an Edge RID deterministically from its endpoints, so
// an edge's identity is fixed by (source, target) alone.
func NewEdgeRID(source, target RID) RID {
	sum := blake2bSum([]byte(string(source) + "|" + string(target)))
	return NewRID(RIDTypeEdge, hex.EncodeToString(sum[:8]))
}

func slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastDash := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
