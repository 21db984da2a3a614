package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fortroute_operation_duration_seconds",
		Help:    "Duration of planner and store operations in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	plansServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fortroute_plans_served_total",
		Help: "Total number of plan requests answered, by site and adaptivity",
	}, []string{"site", "adaptive"})

	interactionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fortroute_interactions_recorded_total",
		Help: "Total number of visitor interactions recorded, by action",
	}, []string{"action"})

	storeWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fortroute_store_write_failures_total",
		Help: "Total number of failed persistence writes",
	})

	storeFallback = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fortroute_store_fallback",
		Help: "1 when the configured persistence backend is unavailable and memory is in use",
	})
)

// PlanServed counts one answered plan request.
func PlanServed(siteID string, adaptive bool) {
	label := "false"
	if adaptive {
		label = "true"
	}
	plansServed.WithLabelValues(siteID, label).Inc()
}

// InteractionRecorded counts one recorded interaction. action is one of
// click, skip, dwell or event.
func InteractionRecorded(action string) {
	interactionsRecorded.WithLabelValues(action).Inc()
}

// SetStoreFallback reports whether the memory fallback is active.
func SetStoreFallback(active bool) {
	if active {
		storeFallback.Set(1)
		return
	}
	storeFallback.Set(0)
}
