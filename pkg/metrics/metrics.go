// Package metrics exposes Prometheus counters for pipeline health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesTotal counts processed queries by outcome.
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relief",
		Name:      "queries_total",
		Help:      "Queries processed, labelled by outcome.",
	}, []string{"outcome"})

	// AdapterFailures counts gather failures per adapter.
	AdapterFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relief",
		Name:      "adapter_failures_total",
		Help:      "Adapter gather calls that returned an error or timed out.",
	}, []string{"adapter"})

	// ReportsGathered counts reports returned per adapter.
	ReportsGathered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relief",
		Name:      "reports_gathered_total",
		Help:      "Reports produced by each adapter.",
	}, []string{"adapter"})

	// ExtractorFallbacks counts times the keyword path substituted for
	// the model, by contract.
	ExtractorFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relief",
		Name:      "extractor_fallbacks_total",
		Help:      "Deterministic fallbacks taken in place of the language model.",
	}, []string{"contract"})

	// RoutesPlanned counts planned routes by planning stage.
	RoutesPlanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relief",
		Name:      "routes_planned_total",
		Help:      "Routes planned, labelled by the stage that produced them.",
	}, []string{"stage"})

	// QueriesRejected counts queries refused by backpressure.
	QueriesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "relief",
		Name:      "queries_rejected_total",
		Help:      "Queries rejected because the pending-query bound was reached.",
	})
)
