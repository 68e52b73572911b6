// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brokerage_http_requests_total",
		Help: "Total number of HTTP requests by route, method and status code",
	}, []string{"route", "method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "brokerage_http_request_duration_seconds",
		Help:    "Latency of HTTP requests by route and method",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	policiesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brokerage_policies_created_total",
		Help: "Total number of policies created by category",
	}, []string{"category"})

	policyStatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brokerage_policy_status_transitions_total",
		Help: "Policy status changes applied by the status sweep",
	}, []string{"from", "to"})

	ledgerEntriesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brokerage_ledger_entries_recorded_total",
		Help: "Total number of ledger entries recorded by type and initial status",
	}, []string{"type", "status"})

	idempotentReplays = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brokerage_ledger_idempotent_replays_total",
		Help: "Ledger appends answered from a previous request with the same idempotency key",
	})
)

// HTTPMiddleware records request count and latency per matched route.
func HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// PolicyCreated counts a new policy.
func PolicyCreated(category string) {
	policiesCreated.WithLabelValues(category).Inc()
}

// PolicyStatusChanged counts a sweep-driven status transition.
func PolicyStatusChanged(from, to string) {
	policyStatusTransitions.WithLabelValues(from, to).Inc()
}

// LedgerEntryRecorded counts a new ledger entry.
func LedgerEntryRecorded(entryType, status string) {
	ledgerEntriesRecorded.WithLabelValues(entryType, status).Inc()
}

// IdempotentReplay counts a replayed ledger append.
func IdempotentReplay() {
	idempotentReplays.Inc()
}
