// Package dbtest opens throwaway in-memory databases for package tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/grupokali/portal/internal/database"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns a migrated SQLite database private to the calling test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(""))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	// One connection keeps the shared in-memory database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
