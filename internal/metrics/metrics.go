// Package metrics provides Prometheus metrics for MeriDB
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for a MeriDB session
type Metrics struct {
	// Statement metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Row lifecycle metrics
	RowsInsertedTotal prometheus.Counter
	RowsUpdatedTotal  prometheus.Counter
	RowsDeletedTotal  prometheus.Counter
	ScansTotal        prometheus.Counter

	// Catalog metrics
	TablesTotal prometheus.Gauge

	StartTime time.Time
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	m := &Metrics{
		StartTime: time.Now(),
	}

	m.OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meridb_db_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	m.OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meridb_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	m.RowsInsertedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meridb_rows_inserted_total",
			Help: "Total number of rows inserted",
		},
	)

	m.RowsUpdatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meridb_rows_updated_total",
			Help: "Total number of rows updated",
		},
	)

	m.RowsDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meridb_rows_deleted_total",
			Help: "Total number of rows deleted",
		},
	)

	m.ScansTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meridb_scans_total",
			Help: "Total number of sequential scans",
		},
	)

	m.TablesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "meridb_tables_total",
			Help: "Number of tables created through this session",
		},
	)

	return m
}

// ObserveOperation records one finished operation
func (m *Metrics) ObserveOperation(operation string, err error, start time.Time) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
