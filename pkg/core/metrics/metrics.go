// Package metrics holds the Prometheus collectors for the valuation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status labels for ValuationsTotal.
const (
	StatusOK           = "ok"
	StatusInvalid      = "invalid"
	StatusNotFound     = "not_found"
	StatusDomainError  = "domain_error"
	StatusInternalFail = "error"
)

var (
	ValuationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcf_valuations_total",
			Help: "Total number of valuation requests by outcome",
		},
		[]string{"status"},
	)

	ValuationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dcf_valuation_duration_seconds",
			Help:    "Duration of a full valuation run in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	SensitivityCellsAbsent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dcf_sensitivity_cells_absent_total",
			Help: "Total number of sensitivity cells without a price",
		},
	)

	GrowthEstimatesUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcf_growth_estimates_total",
			Help: "Stage-1 growth resolutions by source",
		},
		[]string{"source"},
	)
)
