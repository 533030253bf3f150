// Package reconcile enqueues the jobs that bring the forum in line with the
// platform: users, courses and enrollments without a mapping row.
package reconcile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/edly-io/nodebb-sync/internal/db/controller/relation"
	"github.com/edly-io/nodebb-sync/internal/platform"
	"github.com/edly-io/nodebb-sync/internal/queue"
	"github.com/edly-io/nodebb-sync/internal/task"
)

// Report counts what a run looked at.
type Report struct {
	Scanned  int
	Enqueued int
	Skipped  int
}

func (r *Report) add(o Report) {
	r.Scanned += o.Scanned
	r.Enqueued += o.Enqueued
	r.Skipped += o.Skipped
}

// Reconciler compares the platform directory with the mapping store.
type Reconciler struct {
	dir      *platform.Directory
	db       *gorm.DB
	enqueuer queue.Enqueuer
}

// New returns a Reconciler.
func New(dir *platform.Directory, db *gorm.DB, enqueuer queue.Enqueuer) *Reconciler {
	return &Reconciler{dir: dir, db: db, enqueuer: enqueuer}
}

// Users enqueues user.create for every unmapped user, and a profile update when the user has a profile.
func (r *Reconciler) Users(ctx context.Context) (Report, error) {
	var rep Report

	mapped, err := relation.MappedUserIDs(r.db)
	if err != nil {
		return rep, fmt.Errorf("read user mappings: %w", err)
	}

	err = r.dir.Users(ctx, func(users []platform.User) error {
		for _, u := range users {
			rep.Scanned++

			if _, ok := mapped[u.ID]; ok {
				rep.Skipped++
				continue
			}

			if err := r.enqueue(ctx, &rep, task.UserCreate, task.CreateUser{
				PlatformUserID: u.ID,
				Username:       u.Username,
				Email:          u.Email,
				JoinDate:       u.DateJoined.Unix(),
			}); err != nil {
				return err
			}

			if u.Profile == nil {
				continue
			}

			year := 0
			if u.Profile.YearOfBirth != nil {
				year = *u.Profile.YearOfBirth
			}

			fields := task.ProfileFields(u.Profile.Name, u.Profile.City, u.Profile.Country, year)
			if len(fields) == 0 {
				continue
			}

			if err := r.enqueue(ctx, &rep, task.UserUpdateProfile, task.UpdateProfile{
				Username: u.Username,
				Fields:   fields,
			}); err != nil {
				return err
			}
		}

		return nil
	})

	return r.done("users", rep, err)
}

// Courses enqueues category.create for every course without a category.
func (r *Reconciler) Courses(ctx context.Context) (Report, error) {
	var rep Report

	mapped, err := relation.MappedCourseKeys(r.db)
	if err != nil {
		return rep, fmt.Errorf("read category mappings: %w", err)
	}

	err = r.dir.Courses(ctx, func(courses []platform.Course) error {
		for _, c := range courses {
			rep.Scanned++

			if _, ok := mapped[c.ID]; ok {
				rep.Skipped++
				continue
			}

			payload, err := task.NewCourse(c.ID, c.DisplayName)
			if err != nil {
				log.Warn().Err(err).Msg("skipping course")
				rep.Skipped++

				continue
			}

			if err = r.enqueue(ctx, &rep, task.CategoryCreate, payload); err != nil {
				return err
			}
		}

		return nil
	})

	return r.done("courses", rep, err)
}

// Enrollments enqueues group.join for active enrollments not recorded yet.
// Courses without a category are skipped; their join follows once they are synced.
func (r *Reconciler) Enrollments(ctx context.Context) (Report, error) {
	var rep Report

	courses, err := relation.MappedCourseKeys(r.db)
	if err != nil {
		return rep, fmt.Errorf("read category mappings: %w", err)
	}

	recorded, err := relation.RecordedEnrollments(r.db)
	if err != nil {
		return rep, fmt.Errorf("read enrollment mappings: %w", err)
	}

	err = r.dir.ActiveEnrollments(ctx, func(enrollments []platform.Enrollment) error {
		for _, e := range enrollments {
			rep.Scanned++

			_, synced := courses[e.CourseID]
			_, joined := recorded[relation.EnrollmentKey{Username: e.User.Username, CourseKey: e.CourseID}]

			if !synced || joined || e.User.Username == "" {
				rep.Skipped++
				continue
			}

			if err := r.enqueue(ctx, &rep, task.GroupJoin, task.Membership{
				Username:  e.User.Username,
				CourseKey: e.CourseID,
			}); err != nil {
				return err
			}
		}

		return nil
	})

	return r.done("enrollments", rep, err)
}

// All runs Users, Courses and Enrollments in that order and stops at the first error.
func (r *Reconciler) All(ctx context.Context) (Report, error) {
	var total Report

	for _, step := range []func(context.Context) (Report, error){r.Users, r.Courses, r.Enrollments} {
		rep, err := step(ctx)
		total.add(rep)

		if err != nil {
			return total, err
		}
	}

	return total, nil
}

func (r *Reconciler) enqueue(ctx context.Context, rep *Report, name string, payload any) error {
	if err := r.enqueuer.Enqueue(ctx, name, payload, 0); err != nil {
		return fmt.Errorf("enqueue %s: %w", name, err)
	}

	rep.Enqueued++

	return nil
}

func (r *Reconciler) done(what string, rep Report, err error) (Report, error) {
	if err != nil {
		return rep, fmt.Errorf("reconcile %s: %w", what, err)
	}

	log.Info().Str("entity", what).Int("scanned", rep.Scanned).Int("enqueued", rep.Enqueued).
		Int("skipped", rep.Skipped).Msg("reconciliation finished")

	return rep, nil
}
