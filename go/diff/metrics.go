package diff

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	earlyExits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iris_diff_early_exits_total",
		Help: "Comparisons short-circuited by the downsampled prepass.",
	})

	pixelDifference = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "iris_diff_pixel_difference",
		Help:    "Distribution of computed pixel-difference fractions.",
		Buckets: prometheus.LinearBuckets(0, 0.05, 21),
	})
)

func observeCompare(out *Outcome) {
	pixelDifference.Observe(out.PixelDifference)
}
