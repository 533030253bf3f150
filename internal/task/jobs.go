// Package task holds the background jobs that mirror platform changes into the
// forum and chain the multi step course setup and teardown.
package task

import (
	"fmt"

	"github.com/edly-io/nodebb-sync/internal/platform"
)

// Job names, used as queue routing keys.
const (
	UserCreate        = "user.create"
	UserUpdateProfile = "user.update_profile"
	UserDelete        = "user.delete"

	CategoryCreate                 = "category.create"
	GroupCreate                    = "group.create"
	CategoryStripDefaultPrivileges = "category.strip_default_privileges"
	CategoryGrantGroupPrivileges   = "category.grant_group_privileges"

	CategoryDelete = "category.delete"
	GroupDelete    = "group.delete"

	GroupJoin   = "group.join"
	GroupUnjoin = "group.unjoin"
)

// CreateUser is the payload of user.create.
type CreateUser struct {
	PlatformUserID uint64 `json:"platform_user_id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	JoinDate       int64  `json:"joindate"`
}

// UpdateProfile is the payload of user.update_profile. Fields are sent as is.
type UpdateProfile struct {
	Username string         `json:"username"`
	Fields   map[string]any `json:"fields"`
}

// DeleteUser is the payload of user.delete.
type DeleteUser struct {
	Username string `json:"username"`
}

// Course is the payload of category.create and group.create.
type Course struct {
	CourseKey   string `json:"course_key"`
	DisplayName string `json:"display_name"`
	Org         string `json:"org"`
	Course      string `json:"course"`
	Run         string `json:"run"`
}

// NewCourse builds the category.create payload of a course.
// The course code stands in for a missing display name.
func NewCourse(courseKey, displayName string) (Course, error) {
	ck, err := platform.ParseCourseKey(courseKey)
	if err != nil {
		return Course{}, fmt.Errorf("%s: %w", courseKey, err)
	}

	if displayName == "" {
		displayName = ck.Course
	}

	return Course{
		CourseKey:   courseKey,
		DisplayName: displayName,
		Org:         ck.Org,
		Course:      ck.Course,
		Run:         ck.Run,
	}, nil
}

// GroupName is the forum group of the course: unique per run, unlike display names.
func (c Course) GroupName() string {
	if c.Org == "" && c.Course == "" && c.Run == "" {
		return c.CourseKey
	}

	return c.Org + "-" + c.Course + "-" + c.Run
}

// CourseRef is the payload of the jobs that only need the course mapping.
type CourseRef struct {
	CourseKey string `json:"course_key"`
}

// DeleteGroup is the payload of group.delete.
type DeleteGroup struct {
	CourseKey string `json:"course_key"`
	Slug      string `json:"slug"`
}

// Membership is the payload of group.join and group.unjoin.
type Membership struct {
	Username  string `json:"username"`
	CourseKey string `json:"course_key"`
}

// ProfileFields maps platform profile columns to forum profile fields. Empty columns are left out.
func ProfileFields(name, city, country string, yearOfBirth int) map[string]any {
	fields := map[string]any{}

	if name != "" {
		fields["fullname"] = name
	}

	switch {
	case city != "" && country != "":
		fields["location"] = city + ", " + country
	case city != "":
		fields["location"] = city
	case country != "":
		fields["location"] = country
	}

	if yearOfBirth > 0 {
		fields["birthday"] = fmt.Sprintf("01/01/%d", yearOfBirth)
	}

	return fields
}
