// Package platform reads the learning platform tables reconciliation works from.
// The tables belong to the platform; nothing here writes to them.
package platform

import "time"

// User is a row of auth_user.
type User struct {
	ID         uint64 `gorm:"primaryKey"`
	Username   string
	Email      string
	FirstName  string
	LastName   string
	IsActive   bool
	DateJoined time.Time
	LastLogin  *time.Time
	Profile    *Profile `gorm:"foreignKey:UserID"`
}

// TableName of the platform user table.
func (User) TableName() string { return "auth_user" }

// Profile is a row of auth_userprofile.
type Profile struct {
	ID          uint64 `gorm:"primaryKey"`
	UserID      uint64
	Name        string
	City        string
	Country     string
	YearOfBirth *int
}

// TableName of the platform profile table.
func (Profile) TableName() string { return "auth_userprofile" }

// Course is a row of course_overviews_courseoverview.
type Course struct {
	ID          string `gorm:"primaryKey"` // course key
	DisplayName string
	Org         string
	Created     time.Time
}

// TableName of the platform course table.
func (Course) TableName() string { return "course_overviews_courseoverview" }

// Enrollment is a row of student_courseenrollment.
type Enrollment struct {
	ID       uint64 `gorm:"primaryKey"`
	UserID   uint64
	CourseID string
	IsActive bool
	Mode     string
	Created  time.Time
	User     User `gorm:"foreignKey:UserID"`
}

// TableName of the platform enrollment table.
func (Enrollment) TableName() string { return "student_courseenrollment" }
