package task

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/edly-io/nodebb-sync/internal/db/controller/relation"
	"github.com/edly-io/nodebb-sync/internal/nodebb"
	"github.com/edly-io/nodebb-sync/internal/queue"
)

// createCategory creates the course category, then chains group.create.
func (t *Tasks) createCategory(ctx context.Context, job queue.Job) error {
	var p Course
	if err := job.Decode(&p); err != nil {
		return err
	}

	_, err := relation.GetCategory(t.db, p.CourseKey)
	switch {
	case err == nil:
		log.Info().Str("job", job.Name).Str("entity", p.CourseKey).Msg("category exists, skipping")
		return nil
	case !errors.Is(err, relation.ErrCategoryMappingNotFound):
		return queue.Retry(err)
	}

	status, res := t.categories.Create(ctx, p.CourseKey, nodebb.Payload{"name": p.DisplayName})
	if err = Handle(job.Name, p.DisplayName, status, res); err != nil {
		return err
	}

	return t.chain(ctx, status, GroupCreate, p)
}

// createGroup creates the course group, then chains category.strip_default_privileges.
func (t *Tasks) createGroup(ctx context.Context, job queue.Job) error {
	var p Course
	if err := job.Decode(&p); err != nil {
		return err
	}

	m, err := relation.GetCategory(t.db, p.CourseKey)
	if err != nil {
		return lookup(job.Name, p.CourseKey, err)
	}

	if m.HasGroup() {
		log.Info().Str("job", job.Name).Str("entity", *m.ForumGroupSlug).Msg("group exists, skipping")
		return nil
	}

	name := p.GroupName()
	status, res := t.groups.Create(ctx, p.CourseKey, nodebb.Payload{
		"name":        name,
		"description": p.DisplayName,
	})
	if err = Handle(job.Name, name, status, res); err != nil {
		return err
	}

	return t.chain(ctx, status, CategoryStripDefaultPrivileges, CourseRef{CourseKey: p.CourseKey})
}

// stripDefaultPrivileges revokes the default groups' privileges, then chains category.grant_group_privileges.
func (t *Tasks) stripDefaultPrivileges(ctx context.Context, job queue.Job) error {
	var p CourseRef
	if err := job.Decode(&p); err != nil {
		return err
	}

	m, err := relation.GetCategory(t.db, p.CourseKey)
	if err != nil {
		return lookup(job.Name, p.CourseKey, err)
	}

	status, res := t.categories.DeleteDefaultPermissions(ctx, m.ForumCategoryID)
	if err = Handle(job.Name, p.CourseKey, status, res); err != nil {
		return err
	}

	return t.chain(ctx, status, CategoryGrantGroupPrivileges, p)
}

func (t *Tasks) grantGroupPrivileges(ctx context.Context, job queue.Job) error {
	var p CourseRef
	if err := job.Decode(&p); err != nil {
		return err
	}

	m, err := relation.GetCategory(t.db, p.CourseKey)
	if err != nil {
		return lookup(job.Name, p.CourseKey, err)
	}

	if !m.HasGroup() || m.ForumGroupName == nil {
		log.Warn().Str("job", job.Name).Str("entity", p.CourseKey).Msg("course has no group, skipping")
		return nil
	}

	status, res := t.categories.AddCourseGroupPermission(ctx, m.ForumCategoryID, *m.ForumGroupName)

	return Handle(job.Name, p.CourseKey, status, res)
}

// deleteCategory removes the course category, then chains group.delete.
// Without a group the mapping is removed right away.
func (t *Tasks) deleteCategory(ctx context.Context, job queue.Job) error {
	var p CourseRef
	if err := job.Decode(&p); err != nil {
		return err
	}

	m, err := relation.GetCategory(t.db, p.CourseKey)
	if err != nil {
		return lookup(job.Name, p.CourseKey, err)
	}

	status, res := t.categories.Delete(ctx, m.ForumCategoryID)
	if err = Handle(job.Name, p.CourseKey, status, res); err != nil {
		return err
	}

	if !m.HasGroup() {
		if status == http.StatusOK {
			return t.forgetCategory(p.CourseKey)
		}

		return nil
	}

	return t.chain(ctx, status, GroupDelete, DeleteGroup{CourseKey: p.CourseKey, Slug: *m.ForumGroupSlug})
}

// deleteGroup removes the course group and, on 200, the category mapping.
func (t *Tasks) deleteGroup(ctx context.Context, job queue.Job) error {
	var p DeleteGroup
	if err := job.Decode(&p); err != nil {
		return err
	}

	status, res := t.groups.Delete(ctx, p.Slug)
	if err := Handle(job.Name, p.Slug, status, res); err != nil {
		return err
	}

	if status != http.StatusOK {
		return nil
	}

	return t.forgetCategory(p.CourseKey)
}

func (t *Tasks) forgetCategory(courseKey string) error {
	err := relation.DeleteCategory(t.db, courseKey)
	if err != nil && !errors.Is(err, relation.ErrCategoryMappingNotFound) {
		return err
	}

	return nil
}
