package nodebb

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"gorm.io/gorm"

	"github.com/edly-io/nodebb-sync/internal/db/controller/relation"
)

const groupsPath = "/api/v2/groups"

// Membership identifies the enrollment a group membership mirrors.
type Membership struct {
	Username   string
	CourseKey  string
	CategoryID int
}

// Groups manages forum groups and memberships.
type Groups struct {
	client *Client
	db     *gorm.DB
}

// NewGroups returns the group operations.
func NewGroups(client *Client, db *gorm.DB) *Groups {
	return &Groups{client: client, db: db}
}

// Create creates the group of a course and, on 200, stores slug and name on its category mapping.
func (g *Groups) Create(ctx context.Context, courseKey string, payload Payload) (int, Result) {
	status, res := g.client.Post(ctx, groupsPath, payload)
	if status != http.StatusOK {
		return status, res
	}

	slug, ok := res.Text("slug")
	if !ok {
		return conflict(errMissingField("slug"))
	}

	name, ok := res.Text("name")
	if !ok {
		return conflict(errMissingField("name"))
	}

	if _, err := relation.SetCategoryGroup(g.db, courseKey, slug, name); err != nil {
		return conflict(err)
	}

	return status, res
}

// Delete removes a group.
func (g *Groups) Delete(ctx context.Context, slug string) (int, Result) {
	return g.client.Delete(ctx, groupPath(slug), nil)
}

// AddMember adds uid to the group. On 200 a non-nil record is stored as enrollment mapping.
func (g *Groups) AddMember(ctx context.Context, uid int, slug string, record *Membership) (int, Result) {
	status, res := g.client.Put(ctx, membershipPath(slug, uid), nil)
	if status != http.StatusOK || record == nil {
		return status, res
	}

	_, err := relation.CreateEnrollment(g.db, record.Username, record.CourseKey, record.CategoryID)
	if err != nil && !errors.Is(err, relation.ErrEnrollmentMappingExists) {
		return conflict(err)
	}

	return status, res
}

// RemoveMember removes uid from the group. On 200 a non-nil record is removed from the enrollment mappings.
func (g *Groups) RemoveMember(ctx context.Context, uid int, slug string, record *Membership) (int, Result) {
	status, res := g.client.Delete(ctx, membershipPath(slug, uid), nil)
	if status != http.StatusOK || record == nil {
		return status, res
	}

	err := relation.DeleteEnrollment(g.db, record.Username, record.CourseKey)
	if err != nil && !errors.Is(err, relation.ErrEnrollmentMappingNotFound) {
		return conflict(err)
	}

	return status, res
}

func groupPath(slug string) string {
	return groupsPath + "/" + url.PathEscape(slug)
}

func membershipPath(slug string, uid int) string {
	return groupPath(slug) + "/membership/" + strconv.Itoa(uid)
}
