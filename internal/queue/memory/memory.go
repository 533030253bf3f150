// Package memory is an in-process job queue driver: a worker pool fed by an
// unbounded FIFO per priority, with timers for delayed jobs.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edly-io/nodebb-sync/internal/queue"
)

// Config of the memory driver.
type Config struct {
	Workers           int
	HighPriorityQueue string
}

// Queue runs jobs in the current process.
type Queue struct {
	cfg Config

	mu       sync.Mutex
	handlers map[string]queue.Registration
	high     []queue.Job
	normal   []queue.Job
	timers   map[*time.Timer]struct{}
	running  int
	closed   bool
	idle     *sync.Cond

	notify chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ queue.Queue = (*Queue)(nil)

// New returns a memory queue. Workers below one are raised to one.
func New(cfg Config) *Queue {
	cfg.Workers = max(cfg.Workers, 1)

	q := &Queue{
		cfg:      cfg,
		handlers: map[string]queue.Registration{},
		timers:   map[*time.Timer]struct{}{},
		notify:   make(chan struct{}, 1),
	}
	q.idle = sync.NewCond(&q.mu)

	return q
}

// Register binds a handler to name. Registering twice replaces the handler.
func (q *Queue) Register(name string, reg queue.Registration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[name] = reg
}

// Enqueue submits a job; a positive delay holds it back on a timer.
func (q *Queue) Enqueue(ctx context.Context, name string, payload any, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	_, ok := q.handlers[name]
	q.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", queue.ErrUnknownJob, name)
	}

	job, err := queue.NewJob(name, payload, delay)
	if err != nil {
		return err
	}

	if err = q.schedule(job, delay); err != nil {
		return err
	}

	queue.Enqueued(name)

	return nil
}

// Start launches the workers and blocks until ctx is done or Close is called.
func (q *Queue) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		cancel()

		return queue.ErrClosed
	}
	q.cancel = cancel
	q.mu.Unlock()

	for range q.cfg.Workers {
		q.wg.Add(1)

		go q.work(ctx)
	}

	log.Info().Int("workers", q.cfg.Workers).Msg("memory job queue started")

	<-ctx.Done()
	q.wg.Wait()

	return nil
}

// Close stops the workers and drops pending timers. Queued jobs are lost.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true

	for t := range q.timers {
		t.Stop()
	}
	clear(q.timers)

	if q.cancel != nil {
		q.cancel()
	}

	q.idle.Broadcast()

	return nil
}

// Drain blocks until nothing is queued, delayed or running, or ctx is done.
func (q *Queue) Drain(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()

		q.idle.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.isIdle() && !q.closed {
		if err := ctx.Err(); err != nil {
			return err
		}

		q.idle.Wait()
	}

	return ctx.Err()
}

// Pending returns the number of queued and delayed jobs.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.high) + len(q.normal) + len(q.timers)
}

func (q *Queue) isIdle() bool {
	return len(q.high) == 0 && len(q.normal) == 0 && len(q.timers) == 0 && q.running == 0
}

func (q *Queue) schedule(job queue.Job, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return queue.ErrClosed
	}

	if delay <= 0 {
		q.pushLocked(job)
		return nil
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()

		if _, ok := q.timers[t]; !ok {
			return // stopped by Close
		}

		delete(q.timers, t)
		q.pushLocked(job)
	})
	q.timers[t] = struct{}{}

	return nil
}

func (q *Queue) pushLocked(job queue.Job) {
	if q.handlers[job.Name].Queue == q.cfg.HighPriorityQueue && q.cfg.HighPriorityQueue != "" {
		q.high = append(q.high, job)
	} else {
		q.normal = append(q.normal, job)
	}

	q.signal()
}

func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pop takes the next job, high priority first.
func (q *Queue) pop() (queue.Job, queue.Registration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var job queue.Job

	switch {
	case len(q.high) > 0:
		job, q.high = q.high[0], q.high[1:]
	case len(q.normal) > 0:
		job, q.normal = q.normal[0], q.normal[1:]
	default:
		return queue.Job{}, queue.Registration{}, false
	}

	q.running++

	if len(q.high)+len(q.normal) > 0 {
		q.signal()
	}

	return job, q.handlers[job.Name], true
}

func (q *Queue) done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.running--
	if q.isIdle() {
		q.idle.Broadcast()
	}
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		job, reg, ok := q.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-q.notify:
			}

			continue
		}

		queue.Process(ctx, reg, job, q.schedule)
		q.done()
	}
}
