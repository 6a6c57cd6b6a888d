package workerpool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	inflightGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iris_workerpool_inflight",
		Help: "Units of work currently executing.",
	})
	violations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iris_workerpool_invariant_violations_total",
		Help: "Times the in-flight count exceeded the concurrency limit. Must stay zero.",
	})
)
