package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boothy",
		Subsystem: "sidecar",
		Name:      "connection_transitions_total",
		Help:      "Count of connection state transitions by target state.",
	}, []string{"state"})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boothy",
		Subsystem: "sidecar",
		Name:      "requests_total",
		Help:      "Count of sendRequest outcomes by method and result.",
	}, []string{"method", "result"})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "boothy",
		Subsystem: "sidecar",
		Name:      "request_duration_seconds",
		Help:      "Latency of sendRequest calls, ack plus response wait.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"method"})
)
