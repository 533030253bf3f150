package relation

import (
	"errors"

	"gorm.io/gorm"

	"github.com/edly-io/nodebb-sync/internal/db/models"
)

const enrollmentQueryPattern = "username = ? AND course_key = ?"

// GetEnrollment retrieves the recorded group membership of a user in a course.
func GetEnrollment(db *gorm.DB, username, courseKey string) (*models.EnrollmentMapping, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if username == "" || courseKey == "" {
		return nil, ErrKeyEmpty
	}

	var m models.EnrollmentMapping
	result := db.Where(enrollmentQueryPattern, username, courseKey).First(&m)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrEnrollmentMappingNotFound
		}
		return nil, result.Error
	}

	return &m, nil
}

// CreateEnrollment records that a user joined the group of a course category.
func CreateEnrollment(db *gorm.DB, username, courseKey string, categoryID int) (*models.EnrollmentMapping, error) {
	if _, err := GetEnrollment(db, username, courseKey); err == nil {
		return nil, ErrEnrollmentMappingExists
	} else if !errors.Is(err, ErrEnrollmentMappingNotFound) {
		return nil, err
	}

	m := &models.EnrollmentMapping{
		Username:        username,
		CourseKey:       courseKey,
		ForumCategoryID: categoryID,
	}

	if err := db.Create(m).Error; err != nil {
		return nil, err
	}

	return m, nil
}

// DeleteEnrollment removes the recorded membership of a user in a course.
func DeleteEnrollment(db *gorm.DB, username, courseKey string) error {
	if db == nil {
		return ErrDBNil
	}
	if username == "" || courseKey == "" {
		return ErrKeyEmpty
	}

	result := db.Where(enrollmentQueryPattern, username, courseKey).Delete(&models.EnrollmentMapping{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEnrollmentMappingNotFound
	}

	return nil
}

// EnrollmentKey identifies a membership for set lookups.
type EnrollmentKey struct {
	Username  string
	CourseKey string
}

// RecordedEnrollments returns all recorded memberships.
func RecordedEnrollments(db *gorm.DB) (map[EnrollmentKey]struct{}, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var rows []models.EnrollmentMapping
	if err := db.Select("username", "course_key").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[EnrollmentKey]struct{}, len(rows))
	for _, r := range rows {
		out[EnrollmentKey{Username: r.Username, CourseKey: r.CourseKey}] = struct{}{}
	}

	return out, nil
}
