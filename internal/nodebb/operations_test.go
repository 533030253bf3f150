package nodebb

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edly-io/nodebb-sync/internal/db/controller/relation"
	"github.com/edly-io/nodebb-sync/internal/db/dbtest"
)

func TestUsersCreate(t *testing.T) {
	db := dbtest.Open(t)
	forum := newFakeForum(t, http.StatusOK, `{"payload":{"uid":42}}`)
	users := NewUsers(forum.client(), db)

	status, _ := users.Create(context.Background(), NewUser{
		PlatformUserID: 7,
		Username:       "alice",
		Email:          "alice@example.com",
		JoinDate:       1700000000,
	})
	require.Equal(t, http.StatusOK, status)

	uid, err := relation.ForumUID(db, "alice")
	require.NoError(t, err)
	assert.Equal(t, 42, uid)

	calls := forum.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/api/v2/users", calls[0].Path)
	assert.Equal(t, "alice@example.com", calls[0].Body["email"])
	assert.Equal(t, "1700000000", calls[0].Body["joindate"])

	// the forum accepted a duplicate, the mapping refuses it
	status, res := users.Create(context.Background(), NewUser{PlatformUserID: 7, Username: "alice"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, res.Reason, relation.ErrUserMappingExists.Error())
}

func TestUsersCreateNotPersistedOnFailure(t *testing.T) {
	db := dbtest.Open(t)
	forum := newFakeForum(t, http.StatusBadRequest, ``)

	status, _ := NewUsers(forum.client(), db).Create(context.Background(), NewUser{PlatformUserID: 1, Username: "bob"})
	assert.Equal(t, http.StatusBadRequest, status)

	_, err := relation.GetUser(db, "bob")
	require.ErrorIs(t, err, relation.ErrUserMappingNotFound)
}

func TestUsersUpdate(t *testing.T) {
	db := dbtest.Open(t)
	forum := newFakeForum(t, http.StatusOK, `{}`)
	users := NewUsers(forum.client(), db)

	status, res := users.Update(context.Background(), "ghost", Payload{"fullname": "Ghost"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Not Found", res.Reason)
	assert.Empty(t, forum.calls())

	_, err := relation.CreateUser(db, 1, "alice", 42)
	require.NoError(t, err)

	status, _ = users.Update(context.Background(), "alice", Payload{"fullname": "Alice A"})
	require.Equal(t, http.StatusOK, status)

	calls := forum.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPut, calls[0].Method)
	assert.Equal(t, "/api/v2/users/42", calls[0].Path)
	assert.Equal(t, float64(42), calls[0].Body[ActorField])
	assert.Equal(t, "Alice A", calls[0].Body["fullname"])
}

func TestUsersDelete(t *testing.T) {
	db := dbtest.Open(t)
	forum := newFakeForum(t, http.StatusOK, `{}`)
	users := NewUsers(forum.client(), db)

	status, _ := users.Delete(context.Background(), "ghost")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Empty(t, forum.calls())

	_, err := relation.CreateUser(db, 1, "alice", 42)
	require.NoError(t, err)

	forum.respond(http.StatusInternalServerError, ``)
	status, _ = users.Delete(context.Background(), "alice")
	assert.Equal(t, http.StatusInternalServerError, status)

	_, err = relation.GetUser(db, "alice")
	require.NoError(t, err, "mapping kept while the forum user exists")

	forum.respond(http.StatusOK, `{}`)
	status, _ = users.Delete(context.Background(), "alice")
	require.Equal(t, http.StatusOK, status)

	_, err = relation.GetUser(db, "alice")
	require.ErrorIs(t, err, relation.ErrUserMappingNotFound)

	calls := forum.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "/api/v2/users/42", calls[1].Path)
	assert.Equal(t, float64(42), calls[1].Body[ActorField])
}

func TestCategories(t *testing.T) {
	db := dbtest.Open(t)
	forum := newFakeForum(t, http.StatusOK, `{"payload":{"cid":12}}`)
	categories := NewCategories(forum.client(), db)
	ctx := context.Background()

	status, _ := categories.Create(ctx, "course-v1:edX+DemoX+2024", Payload{"name": "Demo"})
	require.Equal(t, http.StatusOK, status)

	m, err := relation.GetCategory(db, "course-v1:edX+DemoX+2024")
	require.NoError(t, err)
	assert.Equal(t, 12, m.ForumCategoryID)

	status, _ = categories.DeleteDefaultPermissions(ctx, 12)
	require.Equal(t, http.StatusOK, status)

	status, _ = categories.AddCourseGroupPermission(ctx, 12, "DemoX 2024")
	require.Equal(t, http.StatusOK, status)

	status, _ = categories.Delete(ctx, 12)
	require.Equal(t, http.StatusOK, status)

	calls := forum.calls()
	require.Len(t, calls, 4)

	assert.Equal(t, http.MethodDelete, calls[1].Method)
	assert.Equal(t, "/api/v2/categories/12/privileges", calls[1].Path)
	assert.Len(t, calls[1].Body["privileges"], 15)
	assert.Equal(t, []any{"registered-users", "guests", "spiders"}, calls[1].Body["groups"])

	assert.Equal(t, http.MethodPut, calls[2].Method)
	assert.Equal(t, "/api/v2/categories/12/privileges", calls[2].Path)
	assert.Equal(t, []any{"DemoX 2024"}, calls[2].Body["groups"])

	assert.Equal(t, http.MethodDelete, calls[3].Method)
	assert.Equal(t, "/api/v2/categories/12", calls[3].Path)
}

func TestCategoriesCreateWithoutCid(t *testing.T) {
	db := dbtest.Open(t)
	forum := newFakeForum(t, http.StatusOK, `not json`)

	status, res := NewCategories(forum.client(), db).Create(context.Background(), "course-a", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, res.Reason, "cid")
}

func TestGroups(t *testing.T) {
	db := dbtest.Open(t)
	forum := newFakeForum(t, http.StatusOK, `{"payload":{"slug":"demox-2024","name":"DemoX 2024"}}`)
	groups := NewGroups(forum.client(), db)
	ctx := context.Background()

	status, _ := groups.Create(ctx, "course-a", Payload{"name": "DemoX 2024"})
	assert.Equal(t, http.StatusConflict, status, "course has no category yet")

	_, err := relation.CreateCategory(db, "course-a", 3)
	require.NoError(t, err)

	status, _ = groups.Create(ctx, "course-a", Payload{"name": "DemoX 2024"})
	require.Equal(t, http.StatusOK, status)

	m, err := relation.GetCategory(db, "course-a")
	require.NoError(t, err)
	require.True(t, m.HasGroup())
	assert.Equal(t, "demox-2024", *m.ForumGroupSlug)

	record := &Membership{Username: "alice", CourseKey: "course-a", CategoryID: 3}

	forum.respond(http.StatusOK, `{}`)
	status, _ = groups.AddMember(ctx, 42, "demox-2024", record)
	require.Equal(t, http.StatusOK, status)

	_, err = relation.GetEnrollment(db, "alice", "course-a")
	require.NoError(t, err)

	status, _ = groups.AddMember(ctx, 42, "demox-2024", record)
	require.Equal(t, http.StatusOK, status, "repeated join is not a conflict")

	status, _ = groups.RemoveMember(ctx, 42, "demox-2024", record)
	require.Equal(t, http.StatusOK, status)

	_, err = relation.GetEnrollment(db, "alice", "course-a")
	require.ErrorIs(t, err, relation.ErrEnrollmentMappingNotFound)

	status, _ = groups.Delete(ctx, "demox-2024")
	require.Equal(t, http.StatusOK, status)

	calls := forum.calls()
	require.Len(t, calls, 6)
	assert.Equal(t, "/api/v2/groups/demox-2024/membership/42", calls[2].Path)
	assert.Equal(t, http.MethodPut, calls[2].Method)
	assert.Equal(t, float64(1), calls[2].Body[ActorField])
	assert.Equal(t, http.MethodDelete, calls[4].Method)
	assert.Equal(t, "/api/v2/groups/demox-2024", calls[5].Path)
}
