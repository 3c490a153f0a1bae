package transition

import "github.com/prometheus/client_golang/prometheus"

var (
	runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "careershift_runs_total",
		Help: "Analysis runs by final status.",
	}, []string{"status"})

	runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "careershift_run_duration_seconds",
		Help:    "Wall-clock duration of full analysis runs.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	stageFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "careershift_stage_fallbacks_total",
		Help: "Stage executions that fell back to synthetic output.",
	}, []string{"stage"})

	dedupedRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "careershift_runs_deduplicated_total",
		Help: "Run requests answered from an in-flight snapshot.",
	})
)

func init() {
	prometheus.MustRegister(runsTotal, runDuration, stageFallbacks, dedupedRuns)
}
