// Package metrics defines the Prometheus instrumentation for blockwatch.
// All collectors live on a dedicated registry so tests can create isolated
// instances without global registration conflicts.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus collectors used by blockwatch.
type Metrics struct {
	registry *prometheus.Registry

	// PollsTotal counts status polls by result (hit, miss, not_found, error).
	PollsTotal *prometheus.CounterVec

	// EventsCounted counts log events added to the running totals, by kind
	// (mined, processed, sealed).
	EventsCounted *prometheus.CounterVec

	// ResetsTotal counts explicit total resets.
	ResetsTotal prometheus.Counter

	// DockerCommandDuration observes docker CLI invocation latency by
	// command (ps, logs, inspect).
	DockerCommandDuration *prometheus.HistogramVec

	// SnapshotBuildDuration observes end-to-end snapshot build latency,
	// aggregation included.
	SnapshotBuildDuration prometheus.Histogram

	// LastHeight tracks the most recently observed chain height.
	LastHeight prometheus.Gauge

	// PeersObserved tracks the most recently observed peer count.
	PeersObserved prometheus.Gauge
}

// New creates a Metrics instance on a fresh registry. namespace defaults to
// "blockwatch" when empty.
func New(namespace string) (*Metrics, error) {
	if namespace == "" {
		namespace = "blockwatch"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),

		PollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "polls_total",
				Help:      "Total number of status polls by result",
			},
			[]string{"result"},
		),

		EventsCounted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_counted_total",
				Help:      "Total number of log events added to the running totals",
			},
			[]string{"kind"},
		),

		ResetsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resets_total",
				Help:      "Total number of explicit counter resets",
			},
		),

		DockerCommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "docker_command_duration_seconds",
				Help:      "Duration of docker CLI invocations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"command"},
		),

		SnapshotBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "snapshot_build_duration_seconds",
				Help:      "Duration of full status snapshot builds in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		LastHeight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_height",
				Help:      "Most recently observed chain height",
			},
		),

		PeersObserved: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "peers_observed",
				Help:      "Most recently observed peer count",
			},
		),
	}

	for _, collector := range []prometheus.Collector{
		m.PollsTotal,
		m.EventsCounted,
		m.ResetsTotal,
		m.DockerCommandDuration,
		m.SnapshotBuildDuration,
		m.LastHeight,
		m.PeersObserved,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return m, nil
}

// Handler returns an HTTP handler serving the registry in the Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
