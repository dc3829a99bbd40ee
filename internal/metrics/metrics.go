// Package metrics holds the prometheus instruments for the assistant.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	turnsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querypilot_turns_total",
			Help: "Total number of conversation turns processed.",
		},
	)

	parseFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querypilot_classifier_parse_failures_total",
			Help: "Total number of classifier outputs that were not valid JSON.",
		},
	)

	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querypilot_tool_calls_total",
			Help: "Total number of tool catalog calls by operation and outcome.",
		},
		[]string{"tool", "outcome"},
	)

	modelCallSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querypilot_model_call_seconds",
			Help:    "Language model call latency by provider.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(turnsTotal, parseFailuresTotal, toolCallsTotal, modelCallSeconds)
}

// ObserveTurn records one completed conversation turn.
func ObserveTurn() {
	turnsTotal.Inc()
}

// ObserveParseFailure records a classifier output that failed strict decoding.
func ObserveParseFailure() {
	parseFailuresTotal.Inc()
}

// ObserveToolCall records one tool catalog call.
func ObserveToolCall(tool, outcome string) {
	toolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

// ObserveModelCall records the latency of one language model call.
func ObserveModelCall(provider string, elapsed time.Duration) {
	modelCallSeconds.WithLabelValues(provider).Observe(elapsed.Seconds())
}
