package task

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/edly-io/nodebb-sync/internal/config"
	"github.com/edly-io/nodebb-sync/internal/db/controller/relation"
	"github.com/edly-io/nodebb-sync/internal/nodebb"
	"github.com/edly-io/nodebb-sync/internal/queue"
)

// Tasks runs the forum jobs.
type Tasks struct {
	db         *gorm.DB
	users      *nodebb.Users
	categories *nodebb.Categories
	groups     *nodebb.Groups
	enqueuer   queue.Enqueuer
}

// New returns the jobs bound to the forum client, the mapping store and the queue chained jobs go to.
func New(db *gorm.DB, client *nodebb.Client, enqueuer queue.Enqueuer) *Tasks {
	return &Tasks{
		db:         db,
		users:      nodebb.NewUsers(client, db),
		categories: nodebb.NewCategories(client, db),
		groups:     nodebb.NewGroups(client, db),
		enqueuer:   enqueuer,
	}
}

// Register adds every job to q. User create and profile update go to the high priority queue.
func (t *Tasks) Register(q queue.Queue, cfg config.Tasks) {
	policy := queue.RetryPolicy{Delay: cfg.RetryDelay, MaxRetries: cfg.MaxRetries}

	jobs := []struct {
		name    string
		handler queue.Handler
		high    bool
	}{
		{UserCreate, t.createUser, true},
		{UserUpdateProfile, t.updateProfile, true},
		{UserDelete, t.deleteUser, false},
		{CategoryCreate, t.createCategory, false},
		{GroupCreate, t.createGroup, false},
		{CategoryStripDefaultPrivileges, t.stripDefaultPrivileges, false},
		{CategoryGrantGroupPrivileges, t.grantGroupPrivileges, false},
		{CategoryDelete, t.deleteCategory, false},
		{GroupDelete, t.deleteGroup, false},
		{GroupJoin, t.joinGroup, false},
		{GroupUnjoin, t.unjoinGroup, false},
	}

	for _, j := range jobs {
		reg := queue.Registration{Handler: j.handler, Retry: policy, Queue: cfg.DefaultQueue}
		if j.high {
			reg.Queue = cfg.HighPriorityQueue
		}

		q.Register(j.name, reg)
	}
}

// chain enqueues the next step of a job after an exact 200.
func (t *Tasks) chain(ctx context.Context, status int, next string, payload any) error {
	if status != http.StatusOK {
		return nil
	}

	if err := t.enqueuer.Enqueue(ctx, next, payload, 0); err != nil {
		return fmt.Errorf("enqueue %s: %w", next, err)
	}

	return nil
}

// lookup turns a mapping read error into the job result: a missing row ends the
// job with a warning, a storage error is retried.
func lookup(job, entity string, err error) error {
	switch {
	case errors.Is(err, relation.ErrUserMappingNotFound),
		errors.Is(err, relation.ErrCategoryMappingNotFound):
		log.Warn().Str("job", job).Str("entity", entity).Err(err).Msg("not synced yet, skipping")
		return nil
	default:
		return queue.Retry(err)
	}
}
