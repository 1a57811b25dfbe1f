// Package dbtest connects integration tests to a real PostgreSQL database.
// Tests are skipped unless TEST_DATABASE_URL is set in the environment or in
// a .env file at the repository root.
package dbtest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/docslot/docslot/internal/platform/db"
)

// repoRoot is resolved from this file so callers in any package find the
// same .env and migrations directory.
func repoRoot() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "..")
}

// URL returns the test database URL, or skips t when none is configured.
func URL(t *testing.T) string {
	t.Helper()
	_ = godotenv.Load(filepath.Join(repoRoot(), ".env"))

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	return url
}

// MigrationsDir is the repository's migrations directory.
func MigrationsDir() string {
	return filepath.Join(repoRoot(), "migrations")
}

// Pool returns a migrated pool, or skips t when no test database is
// configured. The pool is closed when t finishes.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := URL(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, url, db.PoolConfig{MaxConns: 10, MinConns: 1, MaxConnLifetime: time.Minute})
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := db.NewMigrator(pool, MigrationsDir()).Up(ctx, db.DefaultSchema); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return pool
}
