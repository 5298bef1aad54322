// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

// Package netclient implements the client half of the koi-net
// Request/Response handler (C5): a typed HTTP client over the five koi-net
// wire endpoints.
package netclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/koi-net/koinode/internal/protocol"
)

// Error is a non-200 response from a peer.
type Error struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("peer responded with status %d: %s", e.StatusCode, e.Message)
}

// Client is a typed client over a single peer's base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a Client that talks to baseURL (already including the
// node's configured root path, e.g. "http://peer.example/koi-net").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) post(ctx context.Context, path string, req, resp any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrPeerUnreachable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return c.parseError(httpResp)
	}
	if resp == nil {
		return nil
	}
	if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	errResp := Error{StatusCode: resp.StatusCode}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &errResp); err != nil {
			errResp.Message = string(body)
		}
	} else {
		errResp.Message = http.StatusText(resp.StatusCode)
	}
	return &errResp
}

// BroadcastEvents POSTs events to the peer's broadcast endpoint.
func (c *Client) BroadcastEvents(ctx context.Context, events []protocol.Event) error {
	return c.post(ctx, protocol.PathBroadcastEvents, protocol.BroadcastEventsRequest{Events: events}, nil)
}

// PollEvents POSTs a poll request addressed to selfRID, honoring limit
// (0 means unbounded).
func (c *Client) PollEvents(ctx context.Context, selfRID protocol.RID, limit int) ([]protocol.Event, error) {
	var resp protocol.PollEventsResponse
	err := c.post(ctx, protocol.PathPollEvents, protocol.PollEventsRequest{RID: selfRID, Limit: limit}, &resp)
	return resp.Events, err
}

// FetchRIDs lists RIDs on the peer, optionally filtered by type.
func (c *Client) FetchRIDs(ctx context.Context, allowedTypes []string) ([]protocol.RID, error) {
	var resp protocol.FetchRIDsResponse
	err := c.post(ctx, protocol.PathFetchRIDs, protocol.FetchRIDsRequest{AllowedTypes: allowedTypes}, &resp)
	return resp.RIDs, err
}

// FetchManifests fetches manifests from the peer, either by type filter
// (rids empty) or by explicit RID list.
func (c *Client) FetchManifests(ctx context.Context, allowedTypes []string, rids []protocol.RID) (protocol.FetchManifestsResponse, error) {
	var resp protocol.FetchManifestsResponse
	err := c.post(ctx, protocol.PathFetchManifests, protocol.FetchManifestsRequest{AllowedTypes: allowedTypes, RIDs: rids}, &resp)
	return resp, err
}

// FetchBundles fetches bundles from the peer for explicit RIDs.
func (c *Client) FetchBundles(ctx context.Context, rids []protocol.RID) (protocol.FetchBundlesResponse, error) {
	var resp protocol.FetchBundlesResponse
	err := c.post(ctx, protocol.PathFetchBundles, protocol.FetchBundlesRequest{RIDs: rids}, &resp)
	return resp, err
}
