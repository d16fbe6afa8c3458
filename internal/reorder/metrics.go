package reorder

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Operation results recorded in the operations counter.
const (
	ResultCommitted = "committed"
	ResultNoop      = "noop"
	ResultRejected  = "rejected"
	ResultError     = "error"
)

// Metrics holds the service's prometheus collectors.
type Metrics struct {
	Operations          *prometheus.CounterVec
	BatchSize           *prometheus.HistogramVec
	InvariantViolations *prometheus.CounterVec
	RevisionConflicts   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered, which is what most tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bakeorder",
			Subsystem: "reorder",
			Name:      "operations_total",
			Help:      "Reorder operations by operation and result.",
		}, []string{"operation", "result"}),

		BatchSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bakeorder",
			Subsystem: "reorder",
			Name:      "batch_products",
			Help:      "Products changed per committed batch.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000},
		}, []string{"operation"}),

		InvariantViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bakeorder",
			Subsystem: "reorder",
			Name:      "invariant_violations_total",
			Help:      "Batches rejected because the resulting state broke an ordering invariant.",
		}, []string{"operation"}),

		RevisionConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bakeorder",
			Subsystem: "reorder",
			Name:      "revision_conflicts_total",
			Help:      "Commits retried because a touched sector changed concurrently.",
		}, []string{"operation"}),
	}
	if reg != nil {
		reg.MustRegister(m.Operations, m.BatchSize, m.InvariantViolations, m.RevisionConflicts)
	}
	return m
}
