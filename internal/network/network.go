// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

// Package network implements the koi-net Network interface (C7), combining
// the graph view, event queues, and the HTTP client into peer URL
// resolution, delivery policy, and polling.
package network

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/koi-net/koinode/internal/graph"
	"github.com/koi-net/koinode/internal/netclient"
	"github.com/koi-net/koinode/internal/protocol"
	"github.com/koi-net/koinode/internal/queue"
)

// Metrics is the subset of Prometheus collectors the network layer updates.
// Left nil-safe so callers that don't want metrics can omit it.
type Metrics struct {
	QueueDepth      *prometheus.GaugeVec
	RequestDuration *prometheus.HistogramVec
}

func (m *Metrics) observe(op string, start time.Time) {
	if m == nil || m.RequestDuration == nil {
		return
	}
	m.RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) setDepth(kind queue.Kind, peer protocol.RID, depth int) {
	if m == nil || m.QueueDepth == nil {
		return
	}
	m.QueueDepth.WithLabelValues(string(peer), string(kind)).Set(float64(depth))
}

// Network is the koi-net Network interface (C7).
type Network struct {
	Self         protocol.RID
	FirstContact string

	Graph  *graph.Graph
	Queues *queue.Queues

	Metrics *Metrics
}

// New returns a Network over graph g and queues q for node self.
func New(self protocol.RID, firstContact string, g *graph.Graph, q *queue.Queues) *Network {
	return &Network{Self: self, FirstContact: firstContact, Graph: g, Queues: q}
}

func (n *Network) clientFor(peer protocol.RID) (*netclient.Client, error) {
	profile, ok := n.Graph.NodeProfile(peer)
	if !ok {
		return nil, fmt.Errorf("%w: node %s unknown", protocol.ErrNotFound, peer)
	}
	if profile.NodeType != protocol.NodeTypeFull {
		return nil, fmt.Errorf("%w: %s", protocol.ErrInvalidTarget, peer)
	}
	if profile.BaseURL == "" {
		return nil, fmt.Errorf("%w: node %s has no base_url", protocol.ErrInvalidTarget, peer)
	}
	return netclient.New(profile.BaseURL), nil
}

// PushEventTo enqueues event for peer, choosing webhook vs poll per the
// queue-selection rule: prefer an existing me->peer edge's edge_type, else
// fall back to the peer's node_type. If flush is true and the event landed
// on the webhook queue, the queue is flushed immediately.
func (n *Network) PushEventTo(ctx context.Context, event protocol.Event, peer protocol.RID, flush bool) error {
	logrus.Debugf("network: pushing event %s %s to %s", event.EventType, event.RID, peer)

	kind := queue.KindPoll
	if _, edgeProfile, ok := n.Graph.EdgeBetween(n.Self, peer); ok {
		if edgeProfile.EdgeType == protocol.EdgeWebhook {
			kind = queue.KindWebhook
		}
	} else if profile, ok := n.Graph.NodeProfile(peer); ok && profile.NodeType == protocol.NodeTypeFull {
		kind = queue.KindWebhook
	}

	n.Queues.Push(kind, peer, event)
	n.Metrics.setDepth(kind, peer, n.Queues.Depth(kind, peer))

	if flush && kind == queue.KindWebhook {
		return n.FlushWebhookQueue(ctx, peer)
	}
	return nil
}

// FlushWebhookQueue drains peer's webhook queue and POSTs the batch to its
// broadcast endpoint. On transport failure, all drained events are
// re-enqueued in original order and the error is returned so the caller
// (the processing pipeline) can demote the peer with a FORGET.
func (n *Network) FlushWebhookQueue(ctx context.Context, peer protocol.RID) error {
	logrus.Debugf("network: flushing webhook queue for %s", peer)

	events := n.Queues.Drain(queue.KindWebhook, peer)
	if len(events) == 0 {
		return nil
	}

	client, err := n.clientFor(peer)
	if err != nil {
		n.Queues.Requeue(queue.KindWebhook, peer, events)
		return err
	}

	start := time.Now()
	err = client.BroadcastEvents(ctx, events)
	n.Metrics.observe("broadcast_events", start)
	if err != nil {
		logrus.Warnf("network: broadcast to %s failed, requeuing %d events: %v", peer, len(events), err)
		n.Queues.Requeue(queue.KindWebhook, peer, events)
		n.Metrics.setDepth(queue.KindWebhook, peer, n.Queues.Depth(queue.KindWebhook, peer))
		return err
	}
	n.Metrics.setDepth(queue.KindWebhook, peer, n.Queues.Depth(queue.KindWebhook, peer))
	return nil
}

// FlushPollQueue drains peer's poll queue, honoring limit (0 = unbounded),
// and returns the drained events. Called by the /events/poll server
// handler.
func (n *Network) FlushPollQueue(peer protocol.RID, limit int) []protocol.Event {
	logrus.Debugf("network: flushing poll queue for %s", peer)
	events := n.Queues.DrainLimit(queue.KindPoll, peer, limit)
	n.Metrics.setDepth(queue.KindPoll, peer, n.Queues.Depth(queue.KindPoll, peer))
	return events
}

// GetStateProviders returns known FULL nodes whose provides.state includes
// ridType.
func (n *Network) GetStateProviders(ridType string) []protocol.RID {
	var providers []protocol.RID
	for rid, profile := range n.Graph.AllNodes() {
		if profile.NodeType == protocol.NodeTypeFull && profile.ProvidesState(ridType) {
			providers = append(providers, rid)
		}
	}
	return providers
}

// FetchRemoteBundle attempts state providers for rid's type in order until
// one returns a non-empty bundle; returns ok=false on exhaustion.
func (n *Network) FetchRemoteBundle(ctx context.Context, rid protocol.RID) (protocol.Bundle, bool) {
	for _, provider := range n.GetStateProviders(rid.Type()) {
		client, err := n.clientFor(provider)
		if err != nil {
			continue
		}
		resp, err := client.FetchBundles(ctx, []protocol.RID{rid})
		if err != nil {
			logrus.Debugf("network: fetch bundle %s from %s failed: %v", rid, provider, err)
			continue
		}
		if len(resp.Bundles) > 0 {
			return resp.Bundles[0], true
		}
	}
	logrus.Warnf("network: failed to fetch remote bundle %s", rid)
	return protocol.Bundle{}, false
}

// FetchRemoteManifest attempts state providers for rid's type in order
// until one returns a non-empty manifest; returns ok=false on exhaustion.
func (n *Network) FetchRemoteManifest(ctx context.Context, rid protocol.RID) (protocol.Manifest, bool) {
	for _, provider := range n.GetStateProviders(rid.Type()) {
		client, err := n.clientFor(provider)
		if err != nil {
			continue
		}
		resp, err := client.FetchManifests(ctx, nil, []protocol.RID{rid})
		if err != nil {
			logrus.Debugf("network: fetch manifest %s from %s failed: %v", rid, provider, err)
			continue
		}
		if len(resp.Manifests) > 0 {
			return resp.Manifests[0], true
		}
	}
	logrus.Warnf("network: failed to fetch remote manifest %s", rid)
	return protocol.Manifest{}, false
}

// PollNeighbors polls each known FULL neighbor's event endpoint for events
// addressed to this node; if there are no neighbors but a first-contact
// URL is configured, it polls that URL instead. A neighbor that fails to
// answer is logged and skipped for this round only — it is not demoted.
func (n *Network) PollNeighbors(ctx context.Context) []protocol.Event {
	neighbors := n.Graph.Neighbors(n.Self, graph.DirectionBoth, "", "")

	if len(neighbors) == 0 && n.FirstContact != "" {
		logrus.Debug("network: no neighbors found, polling first contact")
		client := netclient.New(n.FirstContact)
		start := time.Now()
		events, err := client.PollEvents(ctx, n.Self, 0)
		n.Metrics.observe("poll_first_contact", start)
		if err != nil {
			logrus.Debugf("network: failed to reach first contact %s: %v", n.FirstContact, err)
			return nil
		}
		return events
	}

	var all []protocol.Event
	for _, peerRID := range neighbors {
		profile, ok := n.Graph.NodeProfile(peerRID)
		if !ok || profile.NodeType != protocol.NodeTypeFull {
			continue
		}
		client := netclient.New(profile.BaseURL)
		start := time.Now()
		events, err := client.PollEvents(ctx, n.Self, 0)
		n.Metrics.observe("poll_neighbor", start)
		if err != nil {
			logrus.Debugf("network: failed to reach neighbor %s: %v", peerRID, err)
			continue
		}
		all = append(all, events...)
	}
	return all
}
