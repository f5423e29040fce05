package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datask_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datask_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	pipelineOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datask_pipeline_outcomes_total",
			Help: "Terminal stages reached by analysis and visualization requests.",
		},
		[]string{"path", "stage"},
	)

	modelCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datask_model_call_duration_seconds",
			Help:    "Language model call latency by role and result.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"role", "model", "result"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDurationSeconds, pipelineOutcomesTotal, modelCallDurationSeconds)
}

// ObservePipelineOutcome counts a terminal stage of the analysis or
// visualization path.
func ObservePipelineOutcome(path, stage string) {
	pipelineOutcomesTotal.WithLabelValues(path, stage).Inc()
}

// ObserveModelCall records the latency of one model call. role is
// translate, visualize or compose.
func ObserveModelCall(role, model string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	modelCallDurationSeconds.WithLabelValues(role, model, result).Observe(elapsed.Seconds())
}
