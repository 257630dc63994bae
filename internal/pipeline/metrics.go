package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "horus_recognition_runs_total",
		Help: "Completed recognition pipeline runs by outcome class.",
	}, []string{"class"})

	runsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "horus_recognition_in_flight",
		Help: "Recognition pipeline runs currently executing.",
	})

	runsStale = promauto.NewCounter(prometheus.CounterOpts{
		Name: "horus_recognition_stale_results_total",
		Help: "Pipeline results dropped because their camera session was torn down.",
	})
)
