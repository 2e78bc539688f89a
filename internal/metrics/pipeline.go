package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	StageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsflow",
			Name:      "pipeline_stage_total",
			Help:      "Total number of stage transitions",
		},
		[]string{"stage", "status"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsflow",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Stage execution duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	ArticlesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsflow",
			Name:      "articles_total",
			Help:      "Articles processed by terminal outcome",
		},
		[]string{"outcome"},
	)

	DedupResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsflow",
			Name:      "dedup_results_total",
			Help:      "Dedup check results",
		},
		[]string{"result"}, // "unique" / "exact" / "near" / "race" / "resumed"
	)

	TraceEventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "newsflow",
			Name:      "trace_events_dropped_total",
			Help:      "Stage events dropped due to recorder buffer overflow",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(StageTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(ArticlesTotal)
	prometheus.MustRegister(DedupResultsTotal)
	prometheus.MustRegister(TraceEventsDroppedTotal)
	pipelineMetricsRegistered = true
}
