package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(backendCalls, backendLatencyMs, analysisChunks)
}

var (
	backendCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recap_backend_calls_total",
			Help: "Calls to external backends by backend and outcome.",
		},
		[]string{"backend", "outcome"},
	)

	backendLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recap_backend_latency_ms",
			Help:    "Backend call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 15000, 60000, 300000, 600000},
		},
		[]string{"backend", "success"},
	)

	analysisChunks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recap_analysis_chunks_total",
			Help: "Analysis chunks processed, by outcome (ok | skipped).",
		},
		[]string{"outcome"},
	)
)

// ObserveBackendCall records one call to backend ("whisper_local",
// "whisper_remote", "ollama"). outcome is an error kind or "ok".
func ObserveBackendCall(backend, outcome string, latency time.Duration) {
	backendCalls.WithLabelValues(norm(backend), norm(outcome)).Inc()
	backendLatencyMs.WithLabelValues(norm(backend), strconv.FormatBool(outcome == "ok")).
		Observe(float64(latency / time.Millisecond))
}

func IncAnalysisChunk(outcome string) {
	analysisChunks.WithLabelValues(norm(outcome)).Inc()
}
