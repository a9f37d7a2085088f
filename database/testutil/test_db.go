package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tourze/row-permission/database"
)

// MustOpenTestDB opens a private in-memory SQLite database for tests with
// the schema migrated. The connection is closed via t.Cleanup.
func MustOpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A distinct DSN per test keeps shared-cache databases isolated.
	db, err := database.Open(database.Config{
		Driver: "sqlite",
		DSN:    "file:" + t.Name() + "?mode=memory&cache=shared&_foreign_keys=1",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
