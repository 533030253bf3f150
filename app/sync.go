package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/edly-io/nodebb-sync/internal/daemon"
	"github.com/edly-io/nodebb-sync/internal/platform"
	"github.com/edly-io/nodebb-sync/internal/queue/memory"
	"github.com/edly-io/nodebb-sync/internal/reconcile"
)

func init() { //nolint: gochecknoinits
	syncCmd.Flags().DurationVar(&drainTimeout, "timeout", time.Hour,
		"how long the memory queue may run the enqueued jobs")

	for _, sub := range []struct {
		use, short string
		run        func(*reconcile.Reconciler, context.Context) (reconcile.Report, error)
	}{
		{"users", "Create forum users for platform users without one", (*reconcile.Reconciler).Users},
		{"courses", "Create forum categories and groups for courses without one", (*reconcile.Reconciler).Courses},
		{"enrollments", "Add active enrollments to their course groups", (*reconcile.Reconciler).Enrollments},
		{"all", "Run users, courses and enrollments in order", (*reconcile.Reconciler).All},
	} {
		syncCmd.AddCommand(&cobra.Command{
			Use:   sub.use,
			Short: sub.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runSync(cmd.Context(), sub.use, sub.run)
			},
		})
	}

	rootCmd.AddCommand(syncCmd)
}

var (
	drainTimeout time.Duration

	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Enqueue the forum jobs for platform entities that are not synced yet",
	}
)

// runSync enqueues the missing jobs. With the memory driver it also runs them and
// waits until the queue drains; with nats the running workers pick them up.
func runSync(
	ctx context.Context,
	what string,
	run func(*reconcile.Reconciler, context.Context) (reconcile.Report, error),
) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := daemon.OpenMappingDB(cfg.DB)
	if err != nil {
		return err //nolint:wrapcheck
	}

	platformDB, err := daemon.OpenDB(cfg.Platform)
	if err != nil {
		return err //nolint:wrapcheck
	}

	q, err := daemon.OpenQueue(&cfg)
	if err != nil {
		return err //nolint:wrapcheck
	}
	defer q.Close() //nolint:errcheck

	daemon.RegisterTasks(&cfg, db, q)

	rep, err := run(reconcile.New(platform.NewDirectory(platformDB), db, q), ctx)
	if err != nil {
		return err //nolint:wrapcheck
	}

	log.Info().Str("sync", what).Int("enqueued", rep.Enqueued).Msg("jobs enqueued")

	mq, ok := q.(*memory.Queue)
	if !ok {
		return nil
	}

	return drain(ctx, mq)
}

func drain(ctx context.Context, q *memory.Queue) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)

	go func() { done <- q.Start(runCtx) }()

	drainCtx, stop := context.WithTimeout(ctx, drainTimeout)
	defer stop()

	drainErr := q.Drain(drainCtx)
	if drainErr != nil {
		log.Warn().Err(drainErr).Int("pending", q.Pending()).Msg("sync stopped before the queue drained")
	}

	cancel()

	if err := <-done; err != nil {
		return err //nolint:wrapcheck
	}

	if drainErr != nil {
		return fmt.Errorf("drain queue: %w", drainErr)
	}

	return nil
}
