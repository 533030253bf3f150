// Package relation provides CRUD operations for the platform to forum mapping tables.
package relation

import "errors"

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrKeyEmpty is returned when a username or course key is empty.
	ErrKeyEmpty = errors.New("mapping key cannot be empty")

	// ErrUserMappingNotFound is returned when no forum user is mapped to a platform user.
	ErrUserMappingNotFound = errors.New("user mapping not found")
	// ErrUserMappingExists is returned when the platform user or forum uid is already mapped.
	ErrUserMappingExists = errors.New("user mapping already exists")

	// ErrCategoryMappingNotFound is returned when a course has no forum category.
	ErrCategoryMappingNotFound = errors.New("category mapping not found")
	// ErrCategoryMappingExists is returned when the course or category id is already mapped.
	ErrCategoryMappingExists = errors.New("category mapping already exists")

	// ErrEnrollmentMappingNotFound is returned when a user is not recorded as member of a course group.
	ErrEnrollmentMappingNotFound = errors.New("enrollment mapping not found")
	// ErrEnrollmentMappingExists is returned when the membership is already recorded.
	ErrEnrollmentMappingExists = errors.New("enrollment mapping already exists")
)

const (
	usernameQueryPattern  = "username = ?"
	courseKeyQueryPattern = "course_key = ?"
)
