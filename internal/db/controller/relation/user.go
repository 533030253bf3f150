package relation

import (
	"errors"

	"gorm.io/gorm"

	"github.com/edly-io/nodebb-sync/internal/db/models"
)

// GetUser retrieves the user mapping of a platform username.
func GetUser(db *gorm.DB, username string) (*models.UserMapping, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if username == "" {
		return nil, ErrKeyEmpty
	}

	var m models.UserMapping
	result := db.Where(usernameQueryPattern, username).First(&m)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserMappingNotFound
		}
		return nil, result.Error
	}

	return &m, nil
}

// ForumUID resolves the forum uid of a platform username.
func ForumUID(db *gorm.DB, username string) (int, error) {
	m, err := GetUser(db, username)
	if err != nil {
		return 0, err
	}

	return m.ForumUID, nil
}

// CreateUser records the forum uid created for a platform user.
func CreateUser(db *gorm.DB, platformUserID uint64, username string, forumUID int) (*models.UserMapping, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if username == "" {
		return nil, ErrKeyEmpty
	}

	var count int64
	result := db.Model(&models.UserMapping{}).
		Where("platform_user_id = ? OR username = ? OR forum_uid = ?", platformUserID, username, forumUID).
		Count(&count)
	if result.Error != nil {
		return nil, result.Error
	}
	if count > 0 {
		return nil, ErrUserMappingExists
	}

	m := &models.UserMapping{
		PlatformUserID: platformUserID,
		Username:       username,
		ForumUID:       forumUID,
	}

	if result = db.Create(m); result.Error != nil {
		return nil, result.Error
	}

	return m, nil
}

// DeleteUser removes the user mapping of a platform username.
func DeleteUser(db *gorm.DB, username string) error {
	if db == nil {
		return ErrDBNil
	}
	if username == "" {
		return ErrKeyEmpty
	}

	result := db.Where(usernameQueryPattern, username).Delete(&models.UserMapping{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserMappingNotFound
	}

	return nil
}

// MappedUserIDs returns the platform user ids that already have a forum user.
func MappedUserIDs(db *gorm.DB) (map[uint64]struct{}, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var ids []uint64
	if err := db.Model(&models.UserMapping{}).Pluck("platform_user_id", &ids).Error; err != nil {
		return nil, err
	}

	out := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}

	return out, nil
}
