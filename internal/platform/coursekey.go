package platform

import (
	"errors"
	"strings"
)

// ErrInvalidCourseKey is returned for keys that are neither course-v1:Org+Course+Run nor Org/Course/Run.
var ErrInvalidCourseKey = errors.New("invalid course key")

// CourseKey is a parsed course id.
type CourseKey struct {
	Org    string
	Course string
	Run    string
}

// ParseCourseKey splits a course id into org, course and run.
func ParseCourseKey(key string) (CourseKey, error) {
	var parts []string

	switch {
	case strings.HasPrefix(key, "course-v1:"):
		parts = strings.Split(strings.TrimPrefix(key, "course-v1:"), "+")
	case strings.Count(key, "/") == 2: //nolint:mnd
		parts = strings.Split(key, "/")
	default:
		return CourseKey{}, ErrInvalidCourseKey
	}

	// course-v1 keys may carry branch/version parts after the run
	if len(parts) < 3 { //nolint:mnd
		return CourseKey{}, ErrInvalidCourseKey
	}

	ck := CourseKey{Org: parts[0], Course: parts[1], Run: parts[2]}
	if ck.Org == "" || ck.Course == "" || ck.Run == "" {
		return CourseKey{}, ErrInvalidCourseKey
	}

	return ck, nil
}
