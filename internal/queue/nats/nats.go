// Package nats is the NATS job queue driver. Jobs are published to
// <prefix>.<job> (or <prefix>.<high priority queue>.<job>) and consumed by a
// queue group, so every job runs on one worker of the group.
package nats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/edly-io/nodebb-sync/internal/queue"
)

// HeaderNotBefore holds the RFC 3339 time before which a job must not run.
const HeaderNotBefore = "Not-Before"

// ErrURLRequired is returned by New without a server URL.
var ErrURLRequired = errors.New("nats url required")

// Config of the NATS driver.
type Config struct {
	URL               string
	Name              string
	SubjectPrefix     string
	QueueGroup        string
	ConnTimeout       time.Duration
	MaxReconnects     int
	Workers           int
	HighPriorityQueue string
}

// Queue publishes and consumes jobs over NATS.
type Queue struct {
	nc       *nats.Conn
	ownsConn bool
	cfg      Config

	mu       sync.Mutex
	handlers map[string]queue.Registration
	subs     []*nats.Subscription
	timers   map[*time.Timer]struct{}
	closed   bool
	cancel   context.CancelFunc

	high   chan queue.Job
	normal chan queue.Job
	stop   chan struct{}
	wg     sync.WaitGroup
}

var _ queue.Queue = (*Queue)(nil)

// New connects to the configured server.
func New(cfg Config) (*Queue, error) {
	if cfg.URL == "" {
		return nil, ErrURLRequired
	}

	opts := []nats.Option{}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	if cfg.ConnTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnTimeout))
	}

	if cfg.MaxReconnects != 0 {
		opts = append(opts, nats.MaxReconnects(cfg.MaxReconnects))
	}

	opts = append(opts,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	q := NewWithConn(nc, cfg)
	q.ownsConn = true

	return q, nil
}

// NewWithConn uses an existing connection; Close leaves it open.
func NewWithConn(nc *nats.Conn, cfg Config) *Queue {
	cfg.Workers = max(cfg.Workers, 1)

	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "nodebb"
	}

	return &Queue{
		nc:       nc,
		cfg:      cfg,
		handlers: map[string]queue.Registration{},
		timers:   map[*time.Timer]struct{}{},
		high:     make(chan queue.Job, cfg.Workers),
		normal:   make(chan queue.Job, cfg.Workers),
		stop:     make(chan struct{}),
	}
}

// Register binds a handler to name. Call before Start.
func (q *Queue) Register(name string, reg queue.Registration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[name] = reg
}

// Subject returns the subject jobs named name are published to.
func (q *Queue) Subject(name string) string {
	q.mu.Lock()
	reg := q.handlers[name]
	q.mu.Unlock()

	if q.cfg.HighPriorityQueue != "" && reg.Queue == q.cfg.HighPriorityQueue {
		return q.cfg.SubjectPrefix + "." + q.cfg.HighPriorityQueue + "." + name
	}

	return q.cfg.SubjectPrefix + "." + name
}

// Enqueue publishes a job. The delay travels in the Not-Before header.
func (q *Queue) Enqueue(ctx context.Context, name string, payload any, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	_, ok := q.handlers[name]
	closed := q.closed
	q.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", queue.ErrUnknownJob, name)
	}

	if closed {
		return queue.ErrClosed
	}

	job, err := queue.NewJob(name, payload, delay)
	if err != nil {
		return err
	}

	if err = q.publish(job); err != nil {
		return err
	}

	queue.Enqueued(name)

	return nil
}

func (q *Queue) publish(job queue.Job) error {
	data, err := job.Marshal()
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.Name, err)
	}

	msg := nats.NewMsg(q.Subject(job.Name))
	msg.Data = data

	if !job.NotBefore.IsZero() {
		msg.Header.Set(HeaderNotBefore, job.NotBefore.UTC().Format(time.RFC3339Nano))
	}

	if err = q.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", msg.Subject, err)
	}

	return q.nc.Flush()
}

// Start subscribes every registered job and runs the workers until ctx is done or Close is called.
func (q *Queue) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		cancel()

		return queue.ErrClosed
	}
	q.cancel = cancel

	names := make([]string, 0, len(q.handlers))
	for name := range q.handlers {
		names = append(names, name)
	}
	q.mu.Unlock()

	for _, name := range names {
		sub, err := q.nc.QueueSubscribe(q.Subject(name), q.cfg.QueueGroup, q.receive)
		if err != nil {
			cancel()
			return fmt.Errorf("nats subscribe %s: %w", name, err)
		}

		q.mu.Lock()
		q.subs = append(q.subs, sub)
		q.mu.Unlock()
	}

	if err := q.nc.Flush(); err != nil {
		cancel()
		return fmt.Errorf("nats flush: %w", err)
	}

	for range q.cfg.Workers {
		q.wg.Add(1)

		go q.work(ctx)
	}

	log.Info().Int("workers", q.cfg.Workers).Int("subjects", len(names)).
		Str("group", q.cfg.QueueGroup).Msg("nats job queue started")

	<-ctx.Done()
	q.wg.Wait()

	return nil
}

// Close unsubscribes, drops delayed jobs held by this process and stops the workers.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.stop)

	var errs []error

	for _, sub := range q.subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}

	for t := range q.timers {
		t.Stop()
	}
	clear(q.timers)

	if q.cancel != nil {
		q.cancel()
	}

	if q.ownsConn {
		q.nc.Close()
	}

	return errors.Join(errs...)
}

func (q *Queue) receive(msg *nats.Msg) {
	job, err := queue.Unmarshal(msg.Data)
	if err != nil {
		log.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping undecodable job")
		return
	}

	notBefore := job.NotBefore
	if h := msg.Header.Get(HeaderNotBefore); h != "" {
		if t, perr := time.Parse(time.RFC3339Nano, h); perr == nil {
			notBefore = t
		}
	}

	wait := time.Until(notBefore)
	if wait <= 0 {
		q.deliver(job)
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(wait, func() {
		q.mu.Lock()
		_, ok := q.timers[t]
		delete(q.timers, t)
		q.mu.Unlock()

		if ok {
			q.deliver(job)
		}
	})
	q.timers[t] = struct{}{}
}

func (q *Queue) deliver(job queue.Job) {
	q.mu.Lock()
	reg := q.handlers[job.Name]
	q.mu.Unlock()

	ch := q.normal
	if q.cfg.HighPriorityQueue != "" && reg.Queue == q.cfg.HighPriorityQueue {
		ch = q.high
	}

	select {
	case ch <- job:
	case <-q.stop:
	}
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()

	for {
		var job queue.Job

		select {
		case job = <-q.high:
		default:
			select {
			case <-ctx.Done():
				return
			case job = <-q.high:
			case job = <-q.normal:
			}
		}

		q.mu.Lock()
		reg := q.handlers[job.Name]
		q.mu.Unlock()

		queue.Process(ctx, reg, job, func(next queue.Job, _ time.Duration) error {
			return q.publish(next)
		})
	}
}
