// Package dispatch turns platform events into forum jobs through an explicit
// event to job table.
package dispatch

import "time"

// Type names a platform event.
type Type string

// Platform events.
const (
	UserCreated       Type = "user.created"
	UserUpdated       Type = "user.updated"
	UserDeleted       Type = "user.deleted"
	ProfileUpdated    Type = "profile.updated"
	CourseCreated     Type = "course.created"
	CategoryDeleted   Type = "category.deleted"
	EnrollmentChanged Type = "enrollment.changed"
)

// Event is a platform lifecycle notification. Only the section matching Type is read.
type Event struct {
	ID   string `json:"id"`
	Type Type   `json:"type" validate:"required"`

	User       *User       `json:"user,omitempty"`
	Profile    *Profile    `json:"profile,omitempty"`
	Course     *Course     `json:"course,omitempty"`
	Enrollment *Enrollment `json:"enrollment,omitempty"`

	// ChangedFields lists the updated columns of a user.updated event. Empty means unknown.
	ChangedFields []string `json:"changed_fields,omitempty"`
}

// User section of user events.
type User struct {
	ID         uint64    `json:"id" validate:"required"`
	Username   string    `json:"username" validate:"required"`
	Email      string    `json:"email" validate:"omitempty,email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	DateJoined time.Time `json:"date_joined"`
}

// Profile section of profile.updated.
type Profile struct {
	Username    string `json:"username" validate:"required"`
	Name        string `json:"name"`
	City        string `json:"city"`
	Country     string `json:"country"`
	YearOfBirth int    `json:"year_of_birth" validate:"gte=0"`
}

// Course section of course events.
type Course struct {
	CourseKey   string `json:"course_key" validate:"required"`
	DisplayName string `json:"display_name"`
}

// Enrollment section of enrollment.changed.
type Enrollment struct {
	Username  string `json:"username" validate:"required"`
	CourseKey string `json:"course_key" validate:"required"`
	IsActive  bool   `json:"is_active"`
	// Created is set when the enrollment row was just inserted.
	Created bool `json:"created"`
}
