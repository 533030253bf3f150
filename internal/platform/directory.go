package platform

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrDBNil is returned when the directory has no database.
var ErrDBNil = errors.New("platform database connection is nil")

const defaultBatchSize = 500

// Directory lists platform entities in batches.
type Directory struct {
	db        *gorm.DB
	batchSize int
}

// NewDirectory returns a Directory over the platform database.
func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db, batchSize: defaultBatchSize}
}

// Users calls fn with every user, profiles loaded.
func (d *Directory) Users(ctx context.Context, fn func([]User) error) error {
	if d.db == nil {
		return ErrDBNil
	}

	var batch []User

	return d.db.WithContext(ctx).Preload("Profile").
		FindInBatches(&batch, d.batchSize, func(_ *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}

// Courses calls fn with every course.
func (d *Directory) Courses(ctx context.Context, fn func([]Course) error) error {
	if d.db == nil {
		return ErrDBNil
	}

	var batch []Course

	return d.db.WithContext(ctx).
		FindInBatches(&batch, d.batchSize, func(_ *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}

// ActiveEnrollments calls fn with every active enrollment, users loaded.
func (d *Directory) ActiveEnrollments(ctx context.Context, fn func([]Enrollment) error) error {
	if d.db == nil {
		return ErrDBNil
	}

	var batch []Enrollment

	return d.db.WithContext(ctx).Preload("User").Where("is_active = ?", true).
		FindInBatches(&batch, d.batchSize, func(_ *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}
