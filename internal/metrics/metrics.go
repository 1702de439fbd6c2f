// Package metrics exposes Prometheus collectors for the telemetry
// pipeline and ticket processing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels analyses that produced an issue
	OutcomeSuccess = "success"
	// OutcomeError labels analyses that failed or were rejected
	OutcomeError = "error"
	// OutcomeDuplicate labels analyses skipped by dedup
	OutcomeDuplicate = "duplicate"
)

var (
	eventsGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskwatch",
			Name:      "events_generated_total",
			Help:      "Total synthetic telemetry events emitted, by event type.",
		},
		[]string{"event_type"},
	)

	eventsFlaggedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskwatch",
			Name:      "events_flagged_total",
			Help:      "Total events that breached a threshold, partitioned by criticality.",
		},
		[]string{"critical"},
	)

	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskwatch",
			Name:      "analyses_total",
			Help:      "Total flagged-event analyses, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	llmRequestSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "deskwatch",
			Name:      "llm_request_seconds",
			Help:      "Latency of text-generation requests in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
	)

	ticketsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskwatch",
			Name:      "tickets_processed_total",
			Help:      "Total support tickets run through the pipeline, by processing mode.",
		},
		[]string{"mode"},
	)
)

// Register attaches all collectors to the supplied registerer
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		eventsGeneratedTotal,
		eventsFlaggedTotal,
		analysesTotal,
		llmRequestSeconds,
		ticketsProcessedTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveEventGenerated counts one emitted event
func ObserveEventGenerated(eventType string) {
	eventsGeneratedTotal.WithLabelValues(eventType).Inc()
}

// ObserveEventFlagged counts one threshold breach
func ObserveEventFlagged(critical bool) {
	label := "false"
	if critical {
		label = "true"
	}
	eventsFlaggedTotal.WithLabelValues(label).Inc()
}

// ObserveAnalysis counts one analysis attempt by outcome
func ObserveAnalysis(outcome string) {
	analysesTotal.WithLabelValues(outcome).Inc()
}

// ObserveLLMRequest records the latency of one LLM round trip
func ObserveLLMRequest(d time.Duration) {
	llmRequestSeconds.Observe(d.Seconds())
}

// ObserveTicketProcessed counts one pipeline run
func ObserveTicketProcessed(mode string) {
	ticketsProcessedTotal.WithLabelValues(mode).Inc()
}
