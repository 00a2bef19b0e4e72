package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var stabilizeResults = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "boothy",
	Subsystem: "ingest",
	Name:      "stabilize_results_total",
	Help:      "Outcome of the per-file stability poll, by result.",
}, []string{"result"})
