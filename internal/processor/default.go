// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package processor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/koi-net/koinode/internal/graph"
	"github.com/koi-net/koinode/internal/protocol"
)

// RegisterDefaultHandlers installs the handlers a compliant koi-net node
// MUST carry: RID self-protection, manifest dedup, edge negotiation, and
// the network output filter.
func RegisterDefaultHandlers(e *Engine) {
	e.AddHandler(Handler{Chain: ChainRID, EventTypes: []protocol.EventType{protocol.EventForget}, Func: forgetRIDHandler, Name: "forget-rid"})
	e.AddHandler(Handler{Chain: ChainRID, Source: protocol.SourceExternal, Func: selfProtectionHandler, Name: "self-protection"})
	e.AddHandler(Handler{Chain: ChainManifest, Func: dedupHandler, Name: "dedup"})
	e.AddHandler(Handler{Chain: ChainBundle, RIDTypes: []string{protocol.RIDTypeEdge}, Func: edgeNegotiationHandler, Name: "edge-negotiation"})
	e.AddHandler(Handler{Chain: ChainNetwork, Func: networkOutputFilterHandler, Name: "network-output-filter"})
}

// forgetRIDHandler labels a FORGET event's normalized type so the pipeline
// knows to delete from cache once it has attached the existing
// manifest/contents.
func forgetRIDHandler(_ context.Context, _ *Engine, kobj protocol.KnowledgeObject) (*protocol.KnowledgeObject, bool) {
	kobj.NormalizedEventType = protocol.EventForget
	return &kobj, false
}

// selfProtectionHandler drops external events whose RID equals this node's
// own identity — a peer cannot redefine us.
func selfProtectionHandler(_ context.Context, e *Engine, kobj protocol.KnowledgeObject) (*protocol.KnowledgeObject, bool) {
	if kobj.RID == e.Identity.RID {
		logrus.Warnf("processor: dropping external event for own identity %s", kobj.RID)
		return nil, true
	}
	return nil, false
}

// dedupHandler stops the chain if the incoming manifest is not newer than
// what is already cached (same digest, or not a strictly greater
// timestamp); otherwise labels the event NEW or UPDATE.
func dedupHandler(ctx context.Context, e *Engine, kobj protocol.KnowledgeObject) (*protocol.KnowledgeObject, bool) {
	prev, ok, err := e.Cache.Read(ctx, kobj.RID)
	if err != nil {
		logrus.Warnf("processor: dedup read for %s: %v", kobj.RID, err)
		return nil, true
	}
	if !ok {
		kobj.NormalizedEventType = protocol.EventNew
		return &kobj, false
	}
	if kobj.Manifest.Equivalent(prev.Manifest) {
		logrus.Debugf("processor: %s is identical knowledge, stopping chain", kobj.RID)
		return nil, true
	}
	if !kobj.Manifest.NewerThan(prev.Manifest) {
		logrus.Debugf("processor: %s is not newer than cached version, stopping chain", kobj.RID)
		return nil, true
	}
	kobj.NormalizedEventType = protocol.EventUpdate
	return &kobj, false
}

// edgeNegotiationHandler implements the edge-negotiation state machine for
// Edge bundles arriving from External peers.
func edgeNegotiationHandler(ctx context.Context, e *Engine, kobj protocol.KnowledgeObject) (*protocol.KnowledgeObject, bool) {
	if kobj.Source != protocol.SourceExternal {
		return nil, false
	}

	edge, err := (protocol.Bundle{Contents: kobj.Contents}).AsEdgeProfile()
	if err != nil {
		logrus.Warnf("processor: invalid edge contents on %s: %v", kobj.RID, err)
		return nil, true
	}

	if edge.Source == e.Identity.RID {
		if edge.Status != protocol.EdgeProposed {
			return nil, false
		}

		peer := edge.Target
		if exists, err := e.Cache.Exists(ctx, peer); err != nil || !exists {
			logrus.Warnf("processor: peer %s proposing edge is unknown to this node", peer)
			return nil, true
		}

		allowed := append([]string{protocol.RIDTypeNode, protocol.RIDTypeEdge}, e.Identity.Profile.Provides.Event...)
		for _, t := range edge.RIDTypes {
			if !contains(allowed, t) {
				logrus.Infof("processor: peer %s requested unsupported rid type %s, rejecting edge", peer, t)
				ev := protocol.NewEvent(protocol.EventForget, kobj.RID, nil, nil)
				_ = e.Network.PushEventTo(ctx, ev, peer, true)
				return nil, true
			}
		}
		if edge.EdgeType == protocol.EdgeWebhook {
			if profile, ok := e.Network.Graph.NodeProfile(peer); !ok || profile.NodeType != protocol.NodeTypeFull {
				logrus.Infof("processor: peer %s requested WEBHOOK edge but is not FULL, rejecting", peer)
				ev := protocol.NewEvent(protocol.EventForget, kobj.RID, nil, nil)
				_ = e.Network.PushEventTo(ctx, ev, peer, true)
				return nil, true
			}
		}

		edge.Status = protocol.EdgeApproved
		contents, err := json.Marshal(edge)
		if err != nil {
			logrus.Warnf("processor: marshal approved edge %s: %v", kobj.RID, err)
			return nil, true
		}
		bundle, err := protocol.NewBundle(kobj.RID, time.Now().Unix(), contents)
		if err != nil {
			logrus.Warnf("processor: build approved edge bundle %s: %v", kobj.RID, err)
			return nil, true
		}
		logrus.Infof("processor: approving proposed edge %s", kobj.RID)
		e.HandleBundle(bundle, protocol.EventUpdate, protocol.SourceInternal)
		return nil, false

	} else if edge.Target == e.Identity.RID {
		if edge.Status == protocol.EdgeApproved {
			logrus.Infof("processor: edge %s we proposed was approved by %s", kobj.RID, edge.Source)
		}
	}
	return nil, false
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// networkOutputFilterHandler determines network_targets: outbound
// neighbors subscribed to the RID's type, plus the other endpoint of any
// edge this node is a party to. For a FORGET of an edge the other endpoint
// is not added; it is reached only if it is a subscriber.
func networkOutputFilterHandler(ctx context.Context, e *Engine, kobj protocol.KnowledgeObject) (*protocol.KnowledgeObject, bool) {
	ridType := kobj.RID.Type()

	subscribers := e.Network.Graph.Neighbors(e.Identity.RID, graph.DirectionOut, "", ridType)
	for _, peer := range subscribers {
		kobj.AddTarget(peer)
	}

	if ridType == protocol.RIDTypeEdge && kobj.EventType != protocol.EventForget {
		if edge, err := (protocol.Bundle{Contents: kobj.Contents}).AsEdgeProfile(); err == nil {
			if edge.Source == e.Identity.RID {
				kobj.AddTarget(edge.Target)
			} else if edge.Target == e.Identity.RID {
				kobj.AddTarget(edge.Source)
			}
		}
	}

	return &kobj, false
}
