// Command migrate runs database migrations via goose against one of
// the two pipeline databases.
//
// Usage:
//
//	go run ./cmd/migrate warehouse up      # Apply pending warehouse migrations
//	go run ./cmd/migrate mart up           # Apply pending mart migrations
//	go run ./cmd/migrate warehouse status  # Show migration status
//	go run ./cmd/migrate mart down         # Roll back the last migration
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/dmarchuk/fraudetl/internal/config"
)

const migrationsDir = "migrations"

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: migrate <warehouse|mart> <command>")
		fmt.Println("Commands: up, down, status, version, redo, up-to <version>, down-to <version>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	target := os.Args[1]
	var dsn string
	switch target {
	case "warehouse":
		dsn = cfg.Warehouse.DSN()
	case "mart":
		dsn = cfg.Mart.DSN()
	default:
		log.Fatalf("Unknown migration target %q, want warehouse or mart", target)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("Failed to open %s database: %v", target, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to %s database: %v", target, err)
	}

	command := os.Args[2]
	args := os.Args[3:]
	dir := filepath.Join(migrationsDir, target)

	if err := goose.RunContext(context.Background(), command, db, dir, args...); err != nil {
		log.Fatalf("Migration %s %s failed: %v", target, command, err)
	}
}
