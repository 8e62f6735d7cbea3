package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(jobsSubmitted, jobsFinished, jobsInFlight, jobDuration, jobsPruned)
}

var (
	jobsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recap_jobs_submitted_total",
			Help: "Jobs accepted for background processing, by kind.",
		},
		[]string{"kind"}, // transcribe | analyze | recap
	)

	jobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recap_jobs_finished_total",
			Help: "Jobs that reached a terminal state, by kind and status.",
		},
		[]string{"kind", "status"}, // completed | failed
	)

	jobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "recap_jobs_in_flight",
			Help: "Jobs currently in the processing state.",
		},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recap_job_duration_seconds",
			Help:    "Wall time from start of processing to a terminal state.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400},
		},
		[]string{"kind"},
	)

	jobsPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recap_jobs_pruned_total",
			Help: "Finished jobs dropped from the job table after the retention window.",
		},
	)
)

func IncJobSubmitted(kind string) {
	jobsSubmitted.WithLabelValues(norm(kind)).Inc()
}

// JobStarted bumps the in-flight gauge and returns the matching finisher.
func JobStarted(kind string) func(status string) {
	start := time.Now()
	jobsInFlight.Inc()
	return func(status string) {
		jobsInFlight.Dec()
		jobsFinished.WithLabelValues(norm(kind), norm(status)).Inc()
		jobDuration.WithLabelValues(norm(kind)).Observe(time.Since(start).Seconds())
	}
}

func AddJobsPruned(n int) {
	if n > 0 {
		jobsPruned.Add(float64(n))
	}
}
