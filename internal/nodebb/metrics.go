package nodebb

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nodebb",
		Name:      "requests_total",
		Help:      "Calls made to the forum write API by method and status class.",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nodebb",
		Name:      "request_duration_seconds",
		Help:      "Latency of forum write API calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	breakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nodebb",
		Name:      "circuit_breaker_state",
		Help:      "Forum circuit breaker state (0 closed, 1 half-open, 2 open).",
	})
)

// statusClass folds a status into 2xx, 4xx, 5xx. The connection pseudo status keeps its code.
func statusClass(status int) string {
	if status == StatusConnectionError {
		return strconv.Itoa(status)
	}

	return strconv.Itoa(status/100) + "xx" //nolint:mnd
}
