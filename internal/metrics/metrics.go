// Package metrics exposes Prometheus instrumentation for the analysis
// pipeline, served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsAnalyzed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kestrel_transactions_analyzed_total",
		Help: "Total number of transactions analyzed, labelled by resulting fraud status.",
	}, []string{"status"})

	FraudScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kestrel_fraud_score",
		Help:    "Distribution of computed fraud scores.",
		Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kestrel_analysis_duration_ms",
		Help:    "Transaction analysis latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	ChecksTriggered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kestrel_checks_triggered_total",
		Help: "Total number of fraud checks triggered, labelled by check name.",
	}, []string{"check"})

	AlertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kestrel_alerts_raised_total",
		Help: "Total number of fraud alerts raised, labelled by fraud status.",
	}, []string{"status"})
)
