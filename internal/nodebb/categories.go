package nodebb

import (
	"context"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/edly-io/nodebb-sync/internal/db/controller/relation"
)

const categoriesPath = "/api/v2/categories"

var (
	// CoursePrivileges are the category privileges granted to or taken from groups.
	CoursePrivileges = []string{
		"groups:find",
		"groups:read",
		"groups:topics:read",
		"groups:topics:create",
		"groups:topics:reply",
		"groups:topics:tag",
		"groups:posts:edit",
		"groups:posts:history",
		"groups:posts:delete",
		"groups:posts:upvote",
		"groups:posts:downvote",
		"groups:topics:delete",
		"groups:posts:view_deleted",
		"groups:purge",
		"groups:moderate",
	}

	// DefaultGroups hold the privileges of a new category until the course group replaces them.
	DefaultGroups = []string{
		"registered-users",
		"guests",
		"spiders",
	}
)

// Categories manages forum categories and their mapping rows.
type Categories struct {
	client *Client
	db     *gorm.DB
}

// NewCategories returns the category operations.
func NewCategories(client *Client, db *gorm.DB) *Categories {
	return &Categories{client: client, db: db}
}

// Create creates the category of a course and, on 200, maps it to courseKey.
func (c *Categories) Create(ctx context.Context, courseKey string, payload Payload) (int, Result) {
	status, res := c.client.Post(ctx, categoriesPath, payload)
	if status != http.StatusOK {
		return status, res
	}

	cid, ok := res.Int("cid")
	if !ok {
		return conflict(errMissingField("cid"))
	}

	if _, err := relation.CreateCategory(c.db, courseKey, cid); err != nil {
		return conflict(err)
	}

	return status, res
}

// DeleteDefaultPermissions revokes the course privileges from the default groups.
func (c *Categories) DeleteDefaultPermissions(ctx context.Context, cid int) (int, Result) {
	return c.client.Delete(ctx, privilegesPath(cid), Payload{
		"privileges": CoursePrivileges,
		"groups":     DefaultGroups,
	})
}

// AddCourseGroupPermission grants the course privileges to groupName only.
func (c *Categories) AddCourseGroupPermission(ctx context.Context, cid int, groupName string) (int, Result) {
	return c.client.Put(ctx, privilegesPath(cid), Payload{
		"privileges": CoursePrivileges,
		"groups":     []string{groupName},
	})
}

// Delete removes a category.
func (c *Categories) Delete(ctx context.Context, cid int) (int, Result) {
	return c.client.Delete(ctx, categoryPath(cid), nil)
}

func categoryPath(cid int) string {
	return categoriesPath + "/" + strconv.Itoa(cid)
}

func privilegesPath(cid int) string {
	return categoryPath(cid) + "/privileges"
}
