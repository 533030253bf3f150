// Package queue defines the background job contract shared by the queue drivers.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

var (
	// ErrUnknownJob is returned when a job name has no registration.
	ErrUnknownJob = errors.New("unknown job")
	// ErrClosed is returned when enqueueing on a stopped queue.
	ErrClosed = errors.New("queue is closed")
)

// Enqueuer submits named jobs. A positive delay defers the first run.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any, delay time.Duration) error
}

// Handler runs one job. Errors wrapped with Retry reschedule the job.
type Handler func(ctx context.Context, job Job) error

// RetryPolicy decides if and when a job asking for a retry runs again.
type RetryPolicy struct {
	Delay time.Duration
	// MaxRetries caps the retries of one job. 0 retries forever.
	MaxRetries int
}

// Allows reports whether the given retry number may run.
func (p RetryPolicy) Allows(retry int) bool {
	return p.MaxRetries == 0 || retry <= p.MaxRetries
}

// Registration binds a handler to a job name.
type Registration struct {
	Handler Handler
	Retry   RetryPolicy
	// Queue routes the job. Jobs on the high priority queue are picked first.
	Queue string
}

// Queue is a job queue that runs registered handlers.
type Queue interface {
	Enqueuer
	Register(name string, reg Registration)
	// Start consumes jobs until ctx is done or Close is called.
	Start(ctx context.Context) error
	Close() error
}

// Job is the envelope moved through a queue.
type Job struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	NotBefore time.Time       `json:"not_before"`
}

// NewJob wraps payload into a new envelope.
func NewJob(name string, payload any, delay time.Duration) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("encode payload of %s: %w", name, err)
	}

	job := Job{
		ID:      uuid.NewString(),
		Name:    name,
		Payload: raw,
	}

	if delay > 0 {
		job.NotBefore = time.Now().Add(delay)
	}

	return job, nil
}

// Decode unmarshals the payload into v.
func (j Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("decode payload of %s %s: %w", j.Name, j.ID, err)
	}

	return nil
}

// Next returns the envelope of the following retry.
func (j Job) Next(delay time.Duration) Job {
	next := j
	next.Attempt++
	next.NotBefore = time.Now().Add(delay)

	return next
}

// Marshal encodes the envelope.
func (j Job) Marshal() ([]byte, error) {
	return json.Marshal(j)
}

// Unmarshal decodes an envelope.
func Unmarshal(data []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return Job{}, fmt.Errorf("decode job envelope: %w", err)
	}

	return j, nil
}
