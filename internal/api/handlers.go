// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"

	"github.com/koi-net/koinode/internal/protocol"
)

// respondJSON writes data as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// handleBroadcastEvents implements POST /events/broadcast. It is
// fire-and-forget from the client's perspective: every event is enqueued
// into the pipeline from source = External and the handler returns
// before processing completes.
func (s *Server) handleBroadcastEvents(w http.ResponseWriter, r *http.Request) {
	var req protocol.BroadcastEventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, protocol.ErrValidation)
		return
	}

	for _, ev := range req.Events {
		s.engine.HandleEvent(ev, protocol.SourceExternal)
	}
	respondJSON(w, http.StatusOK, struct{}{})
}

// handlePollEvents implements POST /events/poll. It drains only events
// destined for the caller's RID, honoring limit.
func (s *Server) handlePollEvents(w http.ResponseWriter, r *http.Request) {
	var req protocol.PollEventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, protocol.ErrValidation)
		return
	}

	events := s.network.FlushPollQueue(req.RID, req.Limit)
	if events == nil {
		events = []protocol.Event{}
	}
	respondJSON(w, http.StatusOK, protocol.PollEventsResponse{Events: events})
}

// handleFetchRIDs implements POST /rids/fetch.
func (s *Server) handleFetchRIDs(w http.ResponseWriter, r *http.Request) {
	var req protocol.FetchRIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, protocol.ErrValidation)
		return
	}

	rids, err := s.cache.List(r.Context(), req.AllowedTypes)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if rids == nil {
		rids = []protocol.RID{}
	}
	respondJSON(w, http.StatusOK, protocol.FetchRIDsResponse{RIDs: rids})
}

// handleFetchManifests implements POST /manifests/fetch. An empty rids
// field enumerates by type filter; a non-empty rids field returns
// manifests for the subset present, listing the rest under not_found.
func (s *Server) handleFetchManifests(w http.ResponseWriter, r *http.Request) {
	var req protocol.FetchManifestsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, protocol.ErrValidation)
		return
	}

	ctx := r.Context()
	resp := protocol.FetchManifestsResponse{}

	if len(req.RIDs) == 0 {
		rids, err := s.cache.List(ctx, req.AllowedTypes)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err)
			return
		}
		for _, rid := range rids {
			if b, ok, err := s.cache.Read(ctx, rid); err == nil && ok {
				resp.Manifests = append(resp.Manifests, b.Manifest)
			}
		}
	} else {
		for _, rid := range req.RIDs {
			b, ok, err := s.cache.Read(ctx, rid)
			if err != nil {
				respondError(w, http.StatusInternalServerError, err)
				return
			}
			if !ok {
				resp.NotFound = append(resp.NotFound, rid)
				continue
			}
			resp.Manifests = append(resp.Manifests, b.Manifest)
		}
	}
	if resp.Manifests == nil {
		resp.Manifests = []protocol.Manifest{}
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleFetchBundles implements POST /bundles/fetch. Always requires
// explicit RIDs.
func (s *Server) handleFetchBundles(w http.ResponseWriter, r *http.Request) {
	var req protocol.FetchBundlesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, protocol.ErrValidation)
		return
	}

	ctx := r.Context()
	resp := protocol.FetchBundlesResponse{}
	for _, rid := range req.RIDs {
		b, ok, err := s.cache.Read(ctx, rid)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err)
			return
		}
		if !ok {
			resp.NotFound = append(resp.NotFound, rid)
			continue
		}
		resp.Bundles = append(resp.Bundles, b)
	}
	if resp.Bundles == nil {
		resp.Bundles = []protocol.Bundle{}
	}
	respondJSON(w, http.StatusOK, resp)
}
