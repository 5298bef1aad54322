// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package protocol

import "encoding/json"

// Manifest identifies a specific version of a bundle. Timestamps are
// wall-clock and used only for tie-breaking; they are never assumed
// monotonic across nodes.
type Manifest struct {
	RID           RID    `json:"rid"`
	Timestamp     int64  `json:"timestamp"`
	ContentDigest string `json:"content_digest"`
}

// Equivalent reports whether m and other represent the same knowledge,
// i.e. their content digests match.
func (m Manifest) Equivalent(other Manifest) bool {
	return m.ContentDigest == other.ContentDigest
}

// NewerThan reports whether m should replace other under the dedup rule:
// strictly greater timestamp, or distinct digest at an equal timestamp is
// treated as not newer (see processor dedup handler for the full rule).
func (m Manifest) NewerThan(other Manifest) bool {
	return m.Timestamp > other.Timestamp
}

// Bundle pairs a manifest with its validated contents. Bundles are
// immutable once their manifest exists.
type Bundle struct {
	Manifest Manifest        `json:"manifest"`
	Contents json.RawMessage `json:"contents"`
}

// AsNodeProfile unmarshals Contents as a NodeProfile, validating required
// fields.
func (b Bundle) AsNodeProfile() (NodeProfile, error) {
	var p NodeProfile
	if err := json.Unmarshal(b.Contents, &p); err != nil {
		return p, err
	}
	if p.NodeType != NodeTypeFull && p.NodeType != NodeTypePartial {
		return p, ErrValidation
	}
	return p, nil
}

// AsEdgeProfile unmarshals Contents as an EdgeProfile, validating required
// fields and the source != target invariant.
func (b Bundle) AsEdgeProfile() (EdgeProfile, error) {
	var e EdgeProfile
	if err := json.Unmarshal(b.Contents, &e); err != nil {
		return e, err
	}
	if e.Source == "" || e.Target == "" || e.Source == e.Target {
		return e, ErrValidation
	}
	return e, nil
}

// NewBundle builds a Bundle for contents, computing its content digest and
// stamping the manifest with rid and timestamp.
func NewBundle(rid RID, timestamp int64, contents json.RawMessage) (Bundle, error) {
	digest, err := ContentDigest(contents)
	if err != nil {
		return Bundle{}, err
	}
	return Bundle{
		Manifest: Manifest{RID: rid, Timestamp: timestamp, ContentDigest: digest},
		Contents: contents,
	}, nil
}
