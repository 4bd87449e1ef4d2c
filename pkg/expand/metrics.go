package expand

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/walteh/tsmacro/pkg/metrics"
)

var (
	expansionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsmacro_expansions_total",
			Help: "Macro call sites replaced by their expansion, partitioned by macro kind",
		}, []string{"kind"},
	)

	expansionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsmacro_expansion_failures_total",
			Help: "Macro invocations that failed or reported an error, partitioned by macro kind",
		}, []string{"kind"},
	)

	transformDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tsmacro_transform_duration_seconds",
			Help:    "Time spent expanding the macros of one file",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
	)
)

func init() {
	metrics.Registry.MustRegister(expansionsTotal, expansionFailures, transformDuration)
}
