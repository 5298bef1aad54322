// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package processor

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/koi-net/koinode/internal/protocol"
)

// callChain runs every handler registered for chain whose filters match
// kobj, in registration order, threading the (possibly replaced) knowledge
// object from one handler to the next. Returns (kobj, true) if a handler
// returned STOP_CHAIN.
func (e *Engine) callChain(ctx context.Context, chain ChainType, kobj protocol.KnowledgeObject) (protocol.KnowledgeObject, bool) {
	for _, h := range e.handlers {
		if h.Chain != chain || !h.matches(kobj) {
			continue
		}

		logrus.Debugf("processor: calling %s handler %q", chain, h.Name)
		result, stop := h.Func(ctx, e, kobj.Copy())
		if stop {
			logrus.Debugf("processor: chain %s stopped by %q", chain, h.Name)
			return kobj, true
		}
		if result != nil {
			kobj = *result
			logrus.Debugf("processor: knowledge object modified by %q", h.Name)
		}
	}
	return kobj, false
}

// process walks kobj through the five handler chains and the fixed
// between-chain actions described for the processing pipeline.
func (e *Engine) process(ctx context.Context, kobj protocol.KnowledgeObject) {
	logrus.Debugf("processor: handling %s %s", kobj.EventType, kobj.RID)

	kobj, stop := e.callChain(ctx, ChainRID, kobj)
	if stop {
		e.Metrics.recordHandled(kobj.EventType, kobj.Source, "stopped")
		return
	}

	skipManifestAndBundle := false

	if kobj.EventType == protocol.EventForget {
		bundle, ok, err := e.Cache.Read(ctx, kobj.RID)
		if err != nil {
			logrus.Warnf("processor: read cache for forget %s: %v", kobj.RID, err)
			return
		}
		if !ok {
			logrus.Debugf("processor: forget of unknown rid %s is a no-op", kobj.RID)
			return
		}
		m := bundle.Manifest
		kobj.Manifest = &m
		kobj.Contents = bundle.Contents
		if kobj.NormalizedEventType == protocol.EventForget {
			skipManifestAndBundle = true
		}
	} else {
		if kobj.Manifest == nil {
			manifest, found := e.obtainManifest(ctx, kobj)
			if !found {
				logrus.Debugf("processor: failed to find manifest for %s", kobj.RID)
				return
			}
			kobj.Manifest = &manifest
		}

		kobj, stop = e.callChain(ctx, ChainManifest, kobj)
		if stop {
			e.Metrics.recordHandled(kobj.EventType, kobj.Source, "stopped")
			return
		}

		if kobj.Contents == nil {
			bundle, found := e.obtainBundle(ctx, kobj)
			if !found {
				logrus.Debugf("processor: failed to find bundle for %s", kobj.RID)
				return
			}
			if kobj.Manifest != nil && !kobj.Manifest.Equivalent(bundle.Manifest) {
				logrus.Warnf("processor: retrieved bundle for %s carries a different manifest, proceeding with it", kobj.RID)
			}
			m := bundle.Manifest
			kobj.Manifest = &m
			kobj.Contents = bundle.Contents
		}
	}

	if !skipManifestAndBundle {
		kobj, stop = e.callChain(ctx, ChainBundle, kobj)
		if stop {
			e.Metrics.recordHandled(kobj.EventType, kobj.Source, "stopped")
			return
		}
	}

	switch kobj.NormalizedEventType {
	case protocol.EventNew, protocol.EventUpdate:
		bundle, ok := kobj.Bundle()
		if !ok {
			logrus.Warnf("processor: %s normalized as %s but has no bundle, dropping", kobj.RID, kobj.NormalizedEventType)
			return
		}
		if err := e.Cache.Write(ctx, bundle); err != nil {
			logrus.Warnf("processor: cache write for %s: %v", kobj.RID, err)
			return
		}
	case protocol.EventForget:
		if err := e.Cache.Delete(ctx, kobj.RID); err != nil {
			logrus.Warnf("processor: cache delete for %s: %v", kobj.RID, err)
			return
		}
	default:
		logrus.Debugf("processor: %s never normalized, no cache or network action", kobj.RID)
		e.Metrics.recordHandled(kobj.EventType, kobj.Source, "no-op")
		return
	}

	if ridType := kobj.RID.Type(); ridType == protocol.RIDTypeNode || ridType == protocol.RIDTypeEdge {
		if err := e.Network.Graph.Generate(ctx, e.Cache); err != nil {
			logrus.Warnf("processor: regenerate graph after %s: %v", kobj.RID, err)
		}
	}

	kobj, stop = e.callChain(ctx, ChainNetwork, kobj)
	if stop {
		e.Metrics.recordHandled(kobj.EventType, kobj.Source, "stopped")
		return
	}

	targets := kobj.Targets()
	if len(targets) > 0 {
		logrus.Debugf("processor: broadcasting %s to %d target(s)", kobj.RID, len(targets))
	}
	ev := kobj.ToEvent()
	for _, target := range targets {
		if err := e.Network.PushEventTo(ctx, ev, target, false); err != nil {
			logrus.Warnf("processor: push to %s: %v", target, err)
			continue
		}
		if err := e.Network.FlushWebhookQueue(ctx, target); err != nil {
			logrus.Warnf("processor: dropping unresponsive node %s: %v", target, err)
			e.HandleRID(target, protocol.EventForget, protocol.SourceInternal)
		}
	}

	e.callChain(ctx, ChainFinal, kobj)
	e.Metrics.recordHandled(kobj.EventType, kobj.Source, "processed")
}

func (e *Engine) obtainManifest(ctx context.Context, kobj protocol.KnowledgeObject) (protocol.Manifest, bool) {
	if kobj.Source == protocol.SourceExternal {
		return e.Network.FetchRemoteManifest(ctx, kobj.RID)
	}
	bundle, ok, err := e.Cache.Read(ctx, kobj.RID)
	if err != nil || !ok {
		return protocol.Manifest{}, false
	}
	return bundle.Manifest, true
}

func (e *Engine) obtainBundle(ctx context.Context, kobj protocol.KnowledgeObject) (protocol.Bundle, bool) {
	if kobj.Source == protocol.SourceExternal {
		return e.Network.FetchRemoteBundle(ctx, kobj.RID)
	}
	bundle, ok, err := e.Cache.Read(ctx, kobj.RID)
	if err != nil || !ok {
		return protocol.Bundle{}, false
	}
	return bundle, true
}
