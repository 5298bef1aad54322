// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

// Package metrics registers the Prometheus collectors koinode exposes on
// GET /metrics and wires them into the network and processor layers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/koi-net/koinode/internal/network"
	"github.com/koi-net/koinode/internal/processor"
)

const namespace = "koinode"

// Collectors holds every collector registered for this node.
type Collectors struct {
	QueueDepth      *prometheus.GaugeVec
	RequestDuration *prometheus.HistogramVec
	PipelineHandled *prometheus.CounterVec
}

// New creates and registers the collectors against reg.
func New(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Number of events currently queued per peer and queue kind.",
		}, []string{"peer", "kind"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of outbound koi-net client calls, by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		PipelineHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_handled_total",
			Help:      "Knowledge objects handled by the processing pipeline, by event type, source, and outcome.",
		}, []string{"event_type", "source", "outcome"}),
	}

	for _, collector := range []prometheus.Collector{c.QueueDepth, c.RequestDuration, c.PipelineHandled} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NetworkMetrics adapts c to network.Metrics.
func (c *Collectors) NetworkMetrics() *network.Metrics {
	return &network.Metrics{QueueDepth: c.QueueDepth, RequestDuration: c.RequestDuration}
}

// ProcessorMetrics adapts c to processor.Metrics.
func (c *Collectors) ProcessorMetrics() *processor.Metrics {
	return &processor.Metrics{Handled: c.PipelineHandled}
}
