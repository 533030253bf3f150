// Package models contains the mapping tables between platform and forum ids.
package models

import "time"

// UserMapping links a platform user to the forum user created for it.
// Rows are never updated; they are removed once the forum user is gone.
type UserMapping struct {
	ID uint64 `gorm:"primaryKey"`
	// PlatformUserID is the id of the platform auth user.
	PlatformUserID uint64 `gorm:"uniqueIndex;not null"`
	// Username is the platform username, the key jobs resolve with.
	Username string `gorm:"uniqueIndex;size:150;not null"`
	// ForumUID is the NodeBB uid.
	ForumUID  int `gorm:"column:forum_uid;uniqueIndex;not null"`
	CreatedAt time.Time
}

// CategoryMapping links a course to its forum category and, once created, its forum group.
type CategoryMapping struct {
	ID              uint64 `gorm:"primaryKey"`
	CourseKey       string `gorm:"uniqueIndex;size:255;not null"`
	ForumCategoryID int    `gorm:"column:forum_category_id;uniqueIndex;not null"`
	// ForumGroupSlug and ForumGroupName are nil until the group exists.
	ForumGroupSlug *string `gorm:"size:255"`
	ForumGroupName *string `gorm:"size:255"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasGroup reports whether the course group was created.
func (m *CategoryMapping) HasGroup() bool {
	return m.ForumGroupSlug != nil && *m.ForumGroupSlug != ""
}

// EnrollmentMapping records a user that joined the group of a course category.
type EnrollmentMapping struct {
	ID              uint64 `gorm:"primaryKey"`
	Username        string `gorm:"uniqueIndex:idx_enrollment_user_course;size:150;not null"`
	CourseKey       string `gorm:"uniqueIndex:idx_enrollment_user_course;size:255;not null"`
	ForumCategoryID int    `gorm:"column:forum_category_id;not null"`
	CreatedAt       time.Time
}

// All returns every mapping model, in migration order.
func All() []any {
	return []any{
		&UserMapping{},
		&CategoryMapping{},
		&EnrollmentMapping{},
	}
}
