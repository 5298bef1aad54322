// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package netclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koi-net/koinode/internal/protocol"
)

func TestBroadcastEventsPostsBody(t *testing.T) {
	var received protocol.BroadcastEventsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, protocol.PathBroadcastEvents, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(struct{}{})
	}))
	defer server.Close()

	c := New(server.URL)
	rid := protocol.NewNodeRID("x")
	ev := protocol.NewEvent(protocol.EventNew, rid, nil, nil)

	require.NoError(t, c.BroadcastEvents(context.Background(), []protocol.Event{ev}))
	require.Len(t, received.Events, 1)
	assert.Equal(t, rid, received.Events[0].RID)
}

func TestPollEventsReturnsEvents(t *testing.T) {
	rid := protocol.NewNodeRID("poller")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req protocol.PollEventsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, rid, req.RID)
		_ = json.NewEncoder(w).Encode(protocol.PollEventsResponse{
			Events: []protocol.Event{protocol.NewEvent(protocol.EventNew, rid, nil, nil)},
		})
	}))
	defer server.Close()

	c := New(server.URL)
	events, err := c.PollEvents(context.Background(), rid, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestNonOKStatusReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "nope"})
	}))
	defer server.Close()

	c := New(server.URL)
	_, err := c.PollEvents(context.Background(), protocol.NewNodeRID("x"), 0)
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "nope", apiErr.Message)
}

func TestUnreachablePeerWrapsErrPeerUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1")
	_, err := c.FetchRIDs(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrPeerUnreachable)
}
