package task

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/edly-io/nodebb-sync/internal/db/controller/relation"
	"github.com/edly-io/nodebb-sync/internal/db/models"
	"github.com/edly-io/nodebb-sync/internal/nodebb"
	"github.com/edly-io/nodebb-sync/internal/queue"
)

type memberCall func(ctx context.Context, uid int, slug string, record *nodebb.Membership) (int, nodebb.Result)

func (t *Tasks) joinGroup(ctx context.Context, job queue.Job) error {
	return t.membership(ctx, job, t.groups.AddMember)
}

func (t *Tasks) unjoinGroup(ctx context.Context, job queue.Job) error {
	return t.membership(ctx, job, t.groups.RemoveMember)
}

// membership resolves the course group and the forum uid, then calls the forum.
func (t *Tasks) membership(ctx context.Context, job queue.Job, call memberCall) error {
	var p Membership
	if err := job.Decode(&p); err != nil {
		return err
	}

	var (
		m   *models.CategoryMapping
		uid int
		err error
	)

	if m, err = relation.GetCategory(t.db, p.CourseKey); err != nil {
		return lookup(job.Name, p.CourseKey, err)
	}

	if !m.HasGroup() {
		log.Warn().Str("job", job.Name).Str("entity", p.CourseKey).Msg("course has no group yet, skipping")
		return nil
	}

	if uid, err = relation.ForumUID(t.db, p.Username); err != nil {
		return lookup(job.Name, p.Username, err)
	}

	status, res := call(ctx, uid, *m.ForumGroupSlug, &nodebb.Membership{
		Username:   p.Username,
		CourseKey:  p.CourseKey,
		CategoryID: m.ForumCategoryID,
	})

	return Handle(job.Name, p.Username, status, res)
}
