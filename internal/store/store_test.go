package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/billfold/internal/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *database.DB, email string) int64 {
	t.Helper()
	u, err := NewUserStore(db).Create(context.Background(), "Test User", email, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
