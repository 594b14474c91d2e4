package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HistoryReads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleet_maintenance_history_reads_total",
		Help: "Total number of maintenance history reads.",
	})
	HistoryReadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleet_maintenance_history_read_failures_total",
		Help: "Total number of history reads that failed at the store.",
	})
	MalformedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleet_maintenance_malformed_records_total",
		Help: "Total number of stored records skipped because they could not be normalized.",
	})
	Queries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_maintenance_queries_total",
		Help: "Total number of insight queries by operation and outcome.",
	}, []string{"operation", "outcome"})
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleet_maintenance_query_duration_seconds",
		Help:    "Duration of insight queries.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
	}, []string{"operation"})
	AlertsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleet_maintenance_alerts_published_total",
		Help: "Total number of smart alerts published to the notifier.",
	})
)
