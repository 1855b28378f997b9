// Package storetest opens the integration-test database shared by package tests.
package storetest

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/aldoetobex/legal-consult-backend/pkg/database"
)

// Open connects to TEST_DATABASE_URL, applies the migrations and constraints the server runs,
// and truncates every table when the test ends. The test is skipped when the variable is unset.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	_ = godotenv.Load()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	if err := database.Migrate(dsn, "up"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	db, err := database.Open(dsn, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	if _, err := database.EnsureConstraints(context.Background(), sqlDB, database.Constraints); err != nil {
		t.Fatalf("constraints: %v", err)
	}

	// Truncate AFTER each test (data survives within a single test).
	t.Cleanup(func() {
		const truncate = `
TRUNCATE TABLE
	request_histories,
	attachments,
	payments,
	requests,
	lawyers,
	articles,
	users
RESTART IDENTITY CASCADE`
		if err := db.Exec(truncate).Error; err != nil {
			t.Logf("truncate failed (ignored): %v", err)
		}
		_ = sqlDB.Close()
	})
	return db
}
