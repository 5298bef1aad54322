// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package protocol

// Wire paths for the five koi-net HTTP endpoints, mounted under a
// configurable root prefix (conventionally "/koi-net").
const (
	PathBroadcastEvents = "/events/broadcast"
	PathPollEvents      = "/events/poll"
	PathFetchRIDs       = "/rids/fetch"
	PathFetchManifests  = "/manifests/fetch"
	PathFetchBundles    = "/bundles/fetch"
)

// BroadcastEventsRequest is the body of a POST to PathBroadcastEvents.
type BroadcastEventsRequest struct {
	Events []Event `json:"events"`
}

// PollEventsRequest is the body of a POST to PathPollEvents.
type PollEventsRequest struct {
	RID   RID `json:"rid"`
	Limit int `json:"limit,omitempty"`
}

// PollEventsResponse is returned by PathPollEvents.
type PollEventsResponse struct {
	Events []Event `json:"events"`
}

// FetchRIDsRequest is the body of a POST to PathFetchRIDs.
type FetchRIDsRequest struct {
	AllowedTypes []string `json:"rid_types,omitempty"`
}

// FetchRIDsResponse is returned by PathFetchRIDs.
type FetchRIDsResponse struct {
	RIDs []RID `json:"rids"`
}

// FetchManifestsRequest is the body of a POST to PathFetchManifests.
type FetchManifestsRequest struct {
	AllowedTypes []string `json:"rid_types,omitempty"`
	RIDs         []RID    `json:"rids,omitempty"`
}

// FetchManifestsResponse is returned by PathFetchManifests.
type FetchManifestsResponse struct {
	Manifests []Manifest `json:"manifests"`
	NotFound  []RID      `json:"not_found,omitempty"`
}

// FetchBundlesRequest is the body of a POST to PathFetchBundles.
type FetchBundlesRequest struct {
	RIDs []RID `json:"rids"`
}

// FetchBundlesResponse is returned by PathFetchBundles.
type FetchBundlesResponse struct {
	Bundles  []Bundle `json:"bundles"`
	NotFound []RID    `json:"not_found,omitempty"`
	Deferred []RID    `json:"deferred,omitempty"`
}
