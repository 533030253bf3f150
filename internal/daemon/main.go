// Package daemon wires the mapping store, the job queue, the forum jobs and the webhook.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/edly-io/nodebb-sync/internal/config"
	"github.com/edly-io/nodebb-sync/internal/db/dsn"
	"github.com/edly-io/nodebb-sync/internal/db/models"
	"github.com/edly-io/nodebb-sync/internal/dispatch"
	"github.com/edly-io/nodebb-sync/internal/logger/adapter/gormlog"
	"github.com/edly-io/nodebb-sync/internal/nodebb"
	"github.com/edly-io/nodebb-sync/internal/queue"
	"github.com/edly-io/nodebb-sync/internal/queue/memory"
	"github.com/edly-io/nodebb-sync/internal/queue/nats"
	"github.com/edly-io/nodebb-sync/internal/task"
	"github.com/edly-io/nodebb-sync/internal/web"
)

const slowQueryThreshold = 200 * time.Millisecond

// Daemon runs the job workers and the webhook.
type Daemon struct {
	cfg   *config.Config
	db    *gorm.DB
	queue queue.Queue
	web   *web.Service
}

// OpenDB connects to the database of a DB section with the zerolog gorm logger.
func OpenDB(cfg config.DB) (*gorm.DB, error) {
	dialector, err := dsn.Dialector(cfg)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlog.New(slowQueryThreshold)})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.GormEngine, err)
	}

	if cfg.GormEngine == config.EngineSQLite {
		// sqlite has a single writer, and every :memory: connection is its own database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite pool: %w", err)
		}

		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// OpenMappingDB connects to the mapping store and migrates its tables.
func OpenMappingDB(cfg config.DB) (*gorm.DB, error) {
	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	if err = db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("migrate mapping tables: %w", err)
	}

	return db, nil
}

// OpenQueue creates the configured queue driver.
func OpenQueue(cfg *config.Config) (queue.Queue, error) {
	switch cfg.Queue.Driver {
	case config.QueueDriverNATS:
		q, err := nats.New(nats.Config{
			URL:               cfg.Queue.NATS.URL,
			Name:              cfg.Queue.NATS.Name,
			SubjectPrefix:     cfg.Queue.NATS.SubjectPrefix,
			QueueGroup:        cfg.Queue.NATS.QueueGroup,
			ConnTimeout:       cfg.Queue.NATS.ConnTimeout,
			MaxReconnects:     cfg.Queue.NATS.MaxReconnects,
			Workers:           cfg.Tasks.Workers,
			HighPriorityQueue: cfg.Tasks.HighPriorityQueue,
		})
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		return q, nil
	case config.QueueDriverMemory, "":
		return memory.New(memory.Config{
			Workers:           cfg.Tasks.Workers,
			HighPriorityQueue: cfg.Tasks.HighPriorityQueue,
		}), nil
	default:
		return nil, fmt.Errorf("queue driver %q: %w", cfg.Queue.Driver, config.ErrUnknownQueueDriver)
	}
}

// RegisterTasks binds every forum job to q.
func RegisterTasks(cfg *config.Config, db *gorm.DB, q queue.Queue) {
	task.New(db, nodebb.NewClient(cfg.NodeBB), q).Register(q, cfg.Tasks)
}

// New opens the mapping store and the queue and builds the webhook.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}

	db, err := OpenMappingDB(cfg.DB)
	if err != nil {
		return nil, err
	}

	q, err := OpenQueue(cfg)
	if err != nil {
		return nil, err
	}

	events, err := web.NewStorage(cfg.DB)
	if err != nil {
		_ = q.Close()
		return nil, err //nolint:wrapcheck
	}

	return newDaemon(cfg, db, q, events), nil
}

func newDaemon(cfg *config.Config, db *gorm.DB, q queue.Queue, events web.Storage) *Daemon {
	RegisterTasks(cfg, db, q)

	dispatcher := dispatch.New(cfg.Enabled, q)
	dispatch.RegisterDefaults(dispatcher)

	if !cfg.Enabled {
		log.Warn().Msg("forum integration disabled: events are accepted and dropped")
	}

	return &Daemon{
		cfg:   cfg,
		db:    db,
		queue: q,
		web:   web.New(cfg, dispatcher, events),
	}
}

// Start runs the workers and the webhook until ctx is done or one of them fails.
func (d *Daemon) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queueDone := make(chan error, 1)
	webDone := make(chan error, 1)

	go func() { queueDone <- d.queue.Start(ctx) }()
	go func() { webDone <- d.web.Start() }()

	var runErr error

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case runErr = <-webDone:
		webDone <- runErr
	case runErr = <-queueDone:
		queueDone <- runErr
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(),
		time.Duration(d.cfg.Webserver.ShutDownTime+5)*time.Second) //nolint:mnd
	defer stop()

	if err := d.web.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("webhook shutdown")
	}

	if err := d.queue.Close(); err != nil {
		log.Error().Err(err).Msg("queue close")
	}

	cancel()
	<-queueDone
	<-webDone

	if sqlDB, err := d.db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	return runErr
}
