package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/edly-io/nodebb-sync/internal/db/controller/relation"
	"github.com/edly-io/nodebb-sync/internal/db/dbtest"
	"github.com/edly-io/nodebb-sync/internal/db/models"
	"github.com/edly-io/nodebb-sync/internal/platform"
	"github.com/edly-io/nodebb-sync/internal/task"
)

type enqueued struct {
	name    string
	payload any
}

type recorder struct {
	jobs []enqueued
	err  error
}

func (r *recorder) Enqueue(_ context.Context, name string, payload any, _ time.Duration) error {
	if r.err != nil {
		return r.err
	}

	r.jobs = append(r.jobs, enqueued{name: name, payload: payload})

	return nil
}

func (r *recorder) names() []string {
	out := make([]string, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j.name)
	}

	return out
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()

	tables := append(models.All(), &platform.User{}, &platform.Profile{}, &platform.Course{}, &platform.Enrollment{})

	return dbtest.Open(t, tables...)
}

func TestUsers(t *testing.T) {
	db := openDB(t)
	year := 1990

	require.NoError(t, db.Create(&[]platform.User{
		{ID: 1, Username: "alice", Email: "alice@example.com", DateJoined: time.Unix(1700000000, 0)},
		{ID: 2, Username: "bob", Email: "bob@example.com", DateJoined: time.Unix(1700000100, 0)},
		{ID: 3, Username: "carol", Email: "carol@example.com", DateJoined: time.Unix(1700000200, 0)},
	}).Error)
	require.NoError(t, db.Create(&platform.Profile{
		UserID: 1, Name: "Alice A", City: "Lahore", Country: "PK", YearOfBirth: &year,
	}).Error)
	require.NoError(t, db.Create(&platform.Profile{UserID: 2}).Error)

	_, err := relation.CreateUser(db, 3, "carol", 30)
	require.NoError(t, err)

	rec := &recorder{}
	rep, err := New(platform.NewDirectory(db), db, rec).Users(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{Scanned: 3, Enqueued: 3, Skipped: 1}, rep)
	assert.Equal(t, []string{task.UserCreate, task.UserUpdateProfile, task.UserCreate}, rec.names())
	assert.Equal(t, task.CreateUser{
		PlatformUserID: 1, Username: "alice", Email: "alice@example.com", JoinDate: 1700000000,
	}, rec.jobs[0].payload)
	assert.Equal(t, task.UpdateProfile{
		Username: "alice",
		Fields:   map[string]any{"fullname": "Alice A", "location": "Lahore, PK", "birthday": "01/01/1990"},
	}, rec.jobs[1].payload)
}

func TestUsersEnqueuesOneJobPerUnmappedUser(t *testing.T) {
	db := openDB(t)

	users := make([]platform.User, 0, 7)
	for i := 1; i <= 7; i++ {
		users = append(users, platform.User{ID: uint64(i), Username: "user" + string(rune('a'+i)), Email: "u@example.com"})
	}

	require.NoError(t, db.Create(&users).Error)

	rec := &recorder{}
	rep, err := New(platform.NewDirectory(db), db, rec).Users(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, rep.Enqueued)
	assert.Len(t, rec.jobs, 7)
}

func TestCourses(t *testing.T) {
	db := openDB(t)

	require.NoError(t, db.Create(&[]platform.Course{
		{ID: "course-v1:edX+A+1", DisplayName: "Course A"},
		{ID: "course-v1:edX+B+1"},
		{ID: "course-v1:edX+C+1", DisplayName: "Course C"},
		{ID: "broken", DisplayName: "Broken"},
	}).Error)

	_, err := relation.CreateCategory(db, "course-v1:edX+C+1", 3)
	require.NoError(t, err)

	rec := &recorder{}
	rep, err := New(platform.NewDirectory(db), db, rec).Courses(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{Scanned: 4, Enqueued: 2, Skipped: 2}, rep)
	require.Len(t, rec.jobs, 2)
	assert.Equal(t, task.CategoryCreate, rec.jobs[0].name)
	assert.Equal(t, task.Course{
		CourseKey: "course-v1:edX+A+1", DisplayName: "Course A", Org: "edX", Course: "A", Run: "1",
	}, rec.jobs[0].payload)
	assert.Equal(t, "B", rec.jobs[1].payload.(task.Course).DisplayName)
}

func TestEnrollments(t *testing.T) {
	db := openDB(t)

	require.NoError(t, db.Create(&[]platform.User{
		{ID: 1, Username: "alice"},
		{ID: 2, Username: "bob"},
		{ID: 3, Username: "carol"},
	}).Error)
	require.NoError(t, db.Create(&[]platform.Enrollment{
		{UserID: 1, CourseID: "course-v1:edX+A+1", IsActive: true},
		{UserID: 2, CourseID: "course-v1:edX+A+1", IsActive: true},
		{UserID: 3, CourseID: "course-v1:edX+A+1", IsActive: false},
		{UserID: 3, CourseID: "course-v1:edX+B+1", IsActive: true},
	}).Error)

	_, err := relation.CreateCategory(db, "course-v1:edX+A+1", 1)
	require.NoError(t, err)
	_, err = relation.CreateEnrollment(db, "bob", "course-v1:edX+A+1", 1)
	require.NoError(t, err)

	rec := &recorder{}
	rep, err := New(platform.NewDirectory(db), db, rec).Enrollments(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{Scanned: 3, Enqueued: 1, Skipped: 2}, rep)
	require.Len(t, rec.jobs, 1)
	assert.Equal(t, enqueued{
		name:    task.GroupJoin,
		payload: task.Membership{Username: "alice", CourseKey: "course-v1:edX+A+1"},
	}, rec.jobs[0])
}

func TestAll(t *testing.T) {
	db := openDB(t)

	require.NoError(t, db.Create(&platform.User{ID: 1, Username: "alice"}).Error)
	require.NoError(t, db.Create(&platform.Course{ID: "course-v1:edX+A+1", DisplayName: "A"}).Error)

	rec := &recorder{}
	rep, err := New(platform.NewDirectory(db), db, rec).All(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{Scanned: 2, Enqueued: 2}, rep)
	assert.Equal(t, []string{task.UserCreate, task.CategoryCreate}, rec.names())
}

func TestEnqueueErrorStopsTheRun(t *testing.T) {
	db := openDB(t)

	require.NoError(t, db.Create(&platform.User{ID: 1, Username: "alice"}).Error)

	errBroker := errors.New("broker down")
	rec := &recorder{err: errBroker}

	_, err := New(platform.NewDirectory(db), db, rec).All(context.Background())
	require.ErrorIs(t, err, errBroker)
}

func TestMissingMappingStore(t *testing.T) {
	db := openDB(t)

	_, err := New(platform.NewDirectory(db), nil, &recorder{}).Users(context.Background())
	require.ErrorIs(t, err, relation.ErrDBNil)
}
