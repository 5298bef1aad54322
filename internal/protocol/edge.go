// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package protocol

// EdgeType is the delivery mode of an edge.
type EdgeType string

const (
	EdgeWebhook EdgeType = "WEBHOOK"
	EdgePoll    EdgeType = "POLL"
)

// EdgeStatus is the negotiation state of an edge.
type EdgeStatus string

const (
	EdgeProposed EdgeStatus = "PROPOSED"
	EdgeApproved EdgeStatus = "APPROVED"
)

// EdgeProfile is the contents of an Edge RID's bundle. The source is the
// event provider, the target is the subscriber.
type EdgeProfile struct {
	Source   RID        `json:"source"`
	Target   RID        `json:"target"`
	EdgeType EdgeType   `json:"edge_type"`
	Status   EdgeStatus `json:"status"`
	RIDTypes []string   `json:"rid_types"`
}

// CarriesType reports whether this edge carries ridType.
func (e EdgeProfile) CarriesType(ridType string) bool { return contains(e.RIDTypes, ridType) }
