package task

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/edly-io/nodebb-sync/internal/db/controller/relation"
	"github.com/edly-io/nodebb-sync/internal/nodebb"
	"github.com/edly-io/nodebb-sync/internal/queue"
)

func (t *Tasks) createUser(ctx context.Context, job queue.Job) error {
	var p CreateUser
	if err := job.Decode(&p); err != nil {
		return err
	}

	_, err := relation.GetUser(t.db, p.Username)
	switch {
	case err == nil:
		log.Info().Str("job", job.Name).Str("entity", p.Username).Msg("forum user exists, skipping")
		return nil
	case !errors.Is(err, relation.ErrUserMappingNotFound):
		return queue.Retry(err)
	}

	status, res := t.users.Create(ctx, nodebb.NewUser{
		PlatformUserID: p.PlatformUserID,
		Username:       p.Username,
		Email:          p.Email,
		JoinDate:       p.JoinDate,
	})

	return Handle(job.Name, p.Username, status, res)
}

func (t *Tasks) updateProfile(ctx context.Context, job queue.Job) error {
	var p UpdateProfile
	if err := job.Decode(&p); err != nil {
		return err
	}

	status, res := t.users.Update(ctx, p.Username, p.Fields)

	return Handle(job.Name, p.Username, status, res)
}

func (t *Tasks) deleteUser(ctx context.Context, job queue.Job) error {
	var p DeleteUser
	if err := job.Decode(&p); err != nil {
		return err
	}

	status, res := t.users.Delete(ctx, p.Username)

	return Handle(job.Name, p.Username, status, res)
}
