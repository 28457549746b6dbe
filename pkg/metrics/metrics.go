// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ekaya_dashboards"

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

var RemoteCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "evaluation_service",
	Name:      "calls_total",
	Help:      "Calls to the evaluation service by operation and outcome",
}, []string{"op", "outcome"})

var RemoteCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "evaluation_service",
	Name:      "call_duration_seconds",
	Help:      "Latency of calls to the evaluation service",
	Buckets:   prometheus.DefBuckets,
}, []string{"op"})

var EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "session",
	Name:      "evaluations_total",
	Help:      "Dashboard evaluations by outcome; rejected means the request never left the process",
}, []string{"outcome"})

var ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "session",
	Name:      "active",
	Help:      "Dashboard sessions held by this process",
})

// ObserveRemoteCall records one evaluation service call.
func ObserveRemoteCall(op, outcome string, elapsed time.Duration) {
	RemoteCallsTotal.WithLabelValues(op, outcome).Inc()
	RemoteCallDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}
