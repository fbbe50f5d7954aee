// Package metrics exposes Prometheus instrumentation for the
// consolidation pipeline and its feed adapters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	expansionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "liboccur_expansions_total",
		Help: "Recurrence expansions by outcome",
	}, []string{"outcome"}) // outcome=complete|partial|error

	expansionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "liboccur_expansion_duration_seconds",
		Help:    "Wall-clock duration of individual recurrence expansions",
		Buckets: prometheus.DefBuckets,
	})

	feedFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "liboccur_feed_fetch_total",
		Help: "Feed fetch attempts by result",
	}, []string{"status"}) // status=ok|not_modified|stale|error

	overridesSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "liboccur_overrides_suppressed_total",
		Help: "Default occurrences dropped in favor of an override event",
	})

	pipelineFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "liboccur_pipeline_failures_total",
		Help: "Processing pipeline failures by stage",
	}, []string{"stage"})

	eventsConsolidated = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "liboccur_events_consolidated",
		Help: "Events in the most recent consolidated result",
	})
)

func IncExpansion(outcome string) { expansionsTotal.WithLabelValues(outcome).Inc() }

func ObserveExpansionDuration(sec float64) { expansionDuration.Observe(sec) }

func IncFeedFetch(status string) { feedFetchTotal.WithLabelValues(status).Inc() }

func AddOverridesSuppressed(n int) { overridesSuppressed.Add(float64(n)) }

func IncPipelineFailure(stage string) { pipelineFailures.WithLabelValues(stage).Inc() }

func RecordConsolidatedCount(n int) { eventsConsolidated.Set(float64(n)) }
