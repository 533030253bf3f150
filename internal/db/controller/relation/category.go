package relation

import (
	"errors"

	"gorm.io/gorm"

	"github.com/edly-io/nodebb-sync/internal/db/models"
)

// GetCategory retrieves the category mapping of a course.
func GetCategory(db *gorm.DB, courseKey string) (*models.CategoryMapping, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if courseKey == "" {
		return nil, ErrKeyEmpty
	}

	var m models.CategoryMapping
	result := db.Where(courseKeyQueryPattern, courseKey).First(&m)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryMappingNotFound
		}
		return nil, result.Error
	}

	return &m, nil
}

// CreateCategory records the forum category created for a course.
func CreateCategory(db *gorm.DB, courseKey string, categoryID int) (*models.CategoryMapping, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if courseKey == "" {
		return nil, ErrKeyEmpty
	}

	var count int64
	result := db.Model(&models.CategoryMapping{}).
		Where("course_key = ? OR forum_category_id = ?", courseKey, categoryID).
		Count(&count)
	if result.Error != nil {
		return nil, result.Error
	}
	if count > 0 {
		return nil, ErrCategoryMappingExists
	}

	m := &models.CategoryMapping{
		CourseKey:       courseKey,
		ForumCategoryID: categoryID,
	}

	if result = db.Create(m); result.Error != nil {
		return nil, result.Error
	}

	return m, nil
}

// SetCategoryGroup stores the forum group created for a course.
func SetCategoryGroup(db *gorm.DB, courseKey, slug, name string) (*models.CategoryMapping, error) {
	m, err := GetCategory(db, courseKey)
	if err != nil {
		return nil, err
	}

	m.ForumGroupSlug = &slug
	m.ForumGroupName = &name

	if err = db.Save(m).Error; err != nil {
		return nil, err
	}

	return m, nil
}

// DeleteCategory removes the category mapping of a course.
func DeleteCategory(db *gorm.DB, courseKey string) error {
	if db == nil {
		return ErrDBNil
	}
	if courseKey == "" {
		return ErrKeyEmpty
	}

	result := db.Where(courseKeyQueryPattern, courseKey).Delete(&models.CategoryMapping{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCategoryMappingNotFound
	}

	return nil
}

// MappedCourseKeys returns the course keys that already have a forum category.
func MappedCourseKeys(db *gorm.DB) (map[string]struct{}, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var keys []string
	if err := db.Model(&models.CategoryMapping{}).Pluck("course_key", &keys).Error; err != nil {
		return nil, err
	}

	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}

	return out, nil
}
