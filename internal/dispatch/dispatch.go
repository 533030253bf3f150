package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/edly-io/nodebb-sync/internal/queue"
)

var (
	// ErrUnknownEvent is returned for event types without a route.
	ErrUnknownEvent = errors.New("unknown event type")
	// ErrInvalidEvent is returned when an event misses the section or fields its type needs.
	ErrInvalidEvent = errors.New("invalid event")
)

// Job is one job a route asks for.
type Job struct {
	Name    string
	Payload any
	Delay   time.Duration
}

// Route translates an event into jobs. No jobs means the event is ignored.
type Route func(ev Event) ([]Job, error)

// Dispatcher enqueues the jobs of the routes registered per event type.
type Dispatcher struct {
	enabled  bool
	enqueuer queue.Enqueuer
	validate *validator.Validate

	mu     sync.RWMutex
	routes map[Type]Route
}

// New returns a Dispatcher without routes. A disabled Dispatcher drops every event.
func New(enabled bool, enqueuer queue.Enqueuer) *Dispatcher {
	return &Dispatcher{
		enabled:  enabled,
		enqueuer: enqueuer,
		validate: validator.New(),
		routes:   map[Type]Route{},
	}
}

// Register sets the route of an event type, replacing an earlier one.
func (d *Dispatcher) Register(t Type, r Route) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.routes[t] = r
}

// Types returns the registered event types.
func (d *Dispatcher) Types() []Type {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Type, 0, len(d.routes))
	for t := range d.routes {
		out = append(out, t)
	}

	return out
}

// Dispatch validates ev and enqueues the jobs of its route.
// It returns the number of jobs enqueued.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (int, error) {
	logger := log.With().Str("event", string(ev.Type)).Str("event_id", ev.ID).Logger()

	if !d.enabled {
		logger.Debug().Msg("integration disabled, dropping event")
		return 0, nil
	}

	if err := d.validate.Struct(ev); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	d.mu.RLock()
	route, ok := d.routes[ev.Type]
	d.mu.RUnlock()

	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Type)
	}

	jobs, err := route(ev)
	if err != nil {
		return 0, err
	}

	if len(jobs) == 0 {
		logger.Debug().Msg("event needs no forum change")
		return 0, nil
	}

	for i, job := range jobs {
		if err = d.enqueuer.Enqueue(ctx, job.Name, job.Payload, job.Delay); err != nil {
			return i, fmt.Errorf("enqueue %s for %s: %w", job.Name, ev.Type, err)
		}

		logger.Debug().Str("job", job.Name).Msg("job enqueued")
	}

	return len(jobs), nil
}
