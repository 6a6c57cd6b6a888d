package diffcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iris_diffcache_hits_total",
		Help: "Diff outcomes served from cache.",
	})
	misses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iris_diffcache_misses_total",
		Help: "Diff outcomes that had to be computed.",
	})
	collisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iris_diffcache_collisions_total",
		Help: "Fingerprint collisions detected by digest revalidation.",
	})
)
