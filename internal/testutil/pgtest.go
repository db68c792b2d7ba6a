// Package testutil provides shared test infrastructure for integration tests.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

// Warehouse opens the warehouse test database, migrates it, and
// returns the handle plus a cleanup function. Skips the test when
// WAREHOUSE_POSTGRES_URL is not set.
func Warehouse(t *testing.T) (*sql.DB, func()) {
	return open(t, "WAREHOUSE_POSTGRES_URL", "warehouse")
}

// Mart opens the mart test database, migrates it, and returns the
// handle plus a cleanup function. Skips the test when
// MART_POSTGRES_URL is not set.
func Mart(t *testing.T) (*sql.DB, func()) {
	return open(t, "MART_POSTGRES_URL", "mart")
}

func open(t *testing.T, envVar, schema string) (*sql.DB, func()) {
	t.Helper()

	dbURL := os.Getenv(envVar)
	if dbURL == "" {
		t.Skipf("%s not set, skipping integration test", envVar)
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("pgtest: open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		t.Fatalf("pgtest: connect to database: %v", err)
	}

	ctx := context.Background()
	dir := filepath.Join(findMigrationsDir(t), schema)
	if err := goose.UpContext(ctx, db, dir); err != nil {
		_ = db.Close()
		t.Fatalf("pgtest: run %s migrations: %v", schema, err)
	}

	cleanup := func() {
		truncateAll(ctx, db)
		_ = db.Close()
	}
	return db, cleanup
}

// findMigrationsDir walks up from the test working directory to find
// the project-level migrations/ directory.
func findMigrationsDir(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("pgtest: getwd: %v", err)
	}
	for {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("pgtest: could not find migrations/ directory walking up from cwd")
		}
		dir = parent
	}
}

// truncateAll truncates all user-created tables to provide a clean
// slate between tests, leaving goose's version table alone.
func truncateAll(ctx context.Context, db *sql.DB) {
	rows, err := db.QueryContext(ctx, `
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		  AND tablename NOT LIKE 'pg_%'
		  AND tablename NOT LIKE 'sql_%'
		  AND tablename <> 'goose_db_version'
	`)
	if err != nil {
		return
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			tables = append(tables, name)
		}
	}

	if len(tables) > 0 {
		// Table names come from pg_tables, not user input.
		stmt := "TRUNCATE " + strings.Join(tables, ", ") + " CASCADE"
		_, _ = db.ExecContext(ctx, stmt)
	}
}
