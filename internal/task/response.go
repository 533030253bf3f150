package task

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/edly-io/nodebb-sync/internal/nodebb"
	"github.com/edly-io/nodebb-sync/internal/queue"
)

// Outcome classifies a forum status.
type Outcome string

// Outcomes of a forum call.
const (
	Success    Outcome = "success"
	Permanent  Outcome = "permanent"
	Transient  Outcome = "transient"
	Unexpected Outcome = "unexpected"
)

var callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "nodebb_sync",
	Name:      "forum_calls_total",
	Help:      "Forum calls made by jobs, by job and outcome.",
}, []string{"job", "outcome"})

// StatusError is a failed forum call.
type StatusError struct {
	Status int
	Reason string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("forum answered %d: %s", e.Status, e.Reason)
}

// Classify maps a status to its outcome. 5xx and the connection pseudo status are transient.
func Classify(status int) Outcome {
	switch {
	case status >= http.StatusInternalServerError:
		return Transient
	case status >= http.StatusBadRequest:
		return Permanent
	case status >= http.StatusOK && status < http.StatusMultipleChoices:
		return Success
	default:
		return Unexpected
	}
}

// Handle logs the result of the forum call a job made. Transient failures
// return a queue.Retry error; everything else returns nil.
func Handle(job, entity string, status int, res nodebb.Result) error {
	outcome := Classify(status)
	callsTotal.WithLabelValues(job, string(outcome)).Inc()

	switch outcome {
	case Transient:
		log.Warn().Str("job", job).Str("entity", entity).Int("status", status).
			Str("reason", res.Reason).Msg("retrying")

		return queue.Retry(&StatusError{Status: status, Reason: res.Reason})
	case Permanent:
		log.Error().Str("job", job).Str("entity", entity).Int("status", status).
			Str("response", res.String()).Msg("failure")
	case Success:
		log.Info().Str("job", job).Str("entity", entity).Int("status", status).Msg("success")
	default:
		log.Warn().Str("job", job).Str("entity", entity).Int("status", status).
			Str("response", res.String()).Msg("unexpected forum status")
	}

	return nil
}
