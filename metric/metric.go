// Package metric exposes the pipeline's Prometheus instrumentation.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuestionsTotal counts answered questions by outcome.
	QuestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pagelens",
		Name:      "questions_total",
		Help:      "Questions processed, by outcome.",
	}, []string{"outcome"})

	// QuestionDuration observes end-to-end answer latency.
	QuestionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pagelens",
		Name:      "question_duration_seconds",
		Help:      "End-to-end question answering latency.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	// RetrievalFailures counts fusion search failures.
	RetrievalFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pagelens",
		Name:      "retrieval_failures_total",
		Help:      "Fusion search requests that failed.",
	})

	// CitationFallbacks counts answers whose citations came from the
	// validated-image fallback instead of the answer text.
	CitationFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pagelens",
		Name:      "citation_fallbacks_total",
		Help:      "Answers that used fallback citations from validated images.",
	})

	// CritiquesTotal counts image critique jobs by status.
	CritiquesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pagelens",
		Name:      "critiques_total",
		Help:      "Image critique jobs, by status.",
	}, []string{"status"})
)
