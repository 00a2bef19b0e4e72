package exportqueue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var jobResults = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "boothy",
	Subsystem: "exportqueue",
	Name:      "job_results_total",
	Help:      "Outcome of a background export job, by result.",
}, []string{"result"})

var queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "boothy",
	Subsystem: "exportqueue",
	Name:      "queue_depth",
	Help:      "Number of jobs waiting in the backlog, not counting the in-flight job.",
})
