// Package metrics defines the Prometheus collectors for resultgroups.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mmynk/resultgroups/internal/errors"
)

const (
	namespace = "resultgroups"

	LabelOperation = "operation"
	LabelOutcome   = "outcome"
	LabelResult    = "result"
)

// Outcomes recorded for store operations.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// StoreOperations counts storage operations by operation and outcome.
var StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "store",
	Name:      "operations_total",
	Help:      "Total number of storage operations by outcome",
}, []string{LabelOperation, LabelOutcome})

// StoreLatency records how long storage operations take.
var StoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "store",
	Name:      "operation_duration_seconds",
	Help:      "Duration of storage operations",
	Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
}, []string{LabelOperation})

// GroupMembers records the member count of saved groups.
var GroupMembers = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "groups",
	Name:      "members",
	Help:      "Number of members per saved group",
	Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
})

// CacheLookups counts group cache lookups by hit or miss.
var CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "cache",
	Name:      "lookups_total",
	Help:      "Total number of group cache lookups",
}, []string{LabelResult})

// Outcome classifies err for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.IsNotFound(err):
		return OutcomeNotFound
	case errors.IsValidation(err):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

// ObserveOperation records one storage operation that started at start.
func ObserveOperation(operation string, start time.Time, err error) {
	StoreOperations.WithLabelValues(operation, Outcome(err)).Inc()
	StoreLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
