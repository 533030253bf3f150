package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job outcomes as counted in jobs_total.
const (
	OutcomeDone      = "done"
	OutcomeRetried   = "retried"
	OutcomeExhausted = "exhausted"
	OutcomeFailed    = "failed"
	OutcomeEnqueued  = "enqueued"
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nodebb_sync",
		Name:      "jobs_total",
		Help:      "Jobs by name and outcome.",
	}, []string{"job", "outcome"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nodebb_sync",
		Name:      "job_duration_seconds",
		Help:      "Handler run time by job name.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
)

// Enqueued counts a submitted job.
func Enqueued(name string) {
	jobsTotal.WithLabelValues(name, OutcomeEnqueued).Inc()
}
