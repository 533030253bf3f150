// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/edly-io/nodebb-sync/internal/db/models"
)

// Open creates an in-memory SQLite database with the given models migrated.
// Without models, the mapping tables are migrated.
func Open(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to create test database")

	// every pooled connection would get its own empty in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(migrate) == 0 {
		migrate = models.All()
	}

	require.NoError(t, db.AutoMigrate(migrate...), "failed to migrate test database")

	return db
}
