package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Reschedule puts a job back after delay.
type Reschedule func(job Job, delay time.Duration) error

// Process runs job through reg and reschedules it when the handler asks for a retry
// the policy still allows. It never returns an error; outcomes are logged and counted.
func Process(ctx context.Context, reg Registration, job Job, reschedule Reschedule) {
	started := time.Now()
	err := run(ctx, reg.Handler, job)
	jobDuration.WithLabelValues(job.Name).Observe(time.Since(started).Seconds())

	logger := log.With().Str("job", job.Name).Str("job_id", job.ID).Int("attempt", job.Attempt).Logger()

	switch {
	case err == nil:
		jobsTotal.WithLabelValues(job.Name, OutcomeDone).Inc()
	case IsRetry(err) && reg.Retry.Allows(job.Attempt+1):
		jobsTotal.WithLabelValues(job.Name, OutcomeRetried).Inc()

		if rerr := reschedule(job.Next(reg.Retry.Delay), reg.Retry.Delay); rerr != nil {
			logger.Error().Err(rerr).AnErr("cause", err).Msg("can't reschedule job")
			return
		}

		logger.Debug().Err(err).Dur("delay", reg.Retry.Delay).Msg("job rescheduled")
	case IsRetry(err):
		jobsTotal.WithLabelValues(job.Name, OutcomeExhausted).Inc()
		logger.Error().Err(err).Int("max_retries", reg.Retry.MaxRetries).Msg("job gave up after max retries")
	default:
		jobsTotal.WithLabelValues(job.Name, OutcomeFailed).Inc()
		logger.Error().Err(err).Msg("job failed")
	}
}

func run(ctx context.Context, h Handler, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	return h(ctx, job)
}
