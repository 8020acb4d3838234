// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "synthoma"

// Registry holds every metric the reader exports.
var Registry = prometheus.NewRegistry()

var (
	RequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP exchanges, partitioned by destination and status code.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"destination", "status"},
	)

	ChaptersLoaded = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chapters_loaded_total",
			Help:      "Chapter loads, partitioned by result.",
		},
		[]string{"result"},
	)

	ChoicesActivated = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "choices_activated_total",
			Help:      "Activated choices, partitioned by what they led to.",
		},
		[]string{"outcome"},
	)

	RevealsCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reveals_completed_total",
			Help:      "Completed typing runs, partitioned by whether they were skipped.",
		},
		[]string{"mode"},
	)

	ActiveSessions = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reader_sessions_active",
			Help:      "Reader sessions currently held in memory.",
		},
	)

	ScorePersistFailures = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_persist_failures_total",
			Help:      "Score increments that could not be written to the backend.",
		},
	)
)

//nolint:gochecknoinits // runtime collectors belong to the same registry
func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}
