package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// Open picks the driver from dbURL: postgres:// and postgresql:// use lib/pq,
// sqlite://<path>, file: and :memory: use sqlite3.
func Open(dbURL string) (*sql.DB, error) {
	driver, dsn, err := driverFor(dbURL)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening db: %w", err)
	}
	if driver == "sqlite3" {
		// a single connection keeps :memory: databases shared and serialises writes
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

func driverFor(dbURL string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return "postgres", dbURL, nil
	case strings.HasPrefix(dbURL, "sqlite://"):
		return "sqlite3", strings.TrimPrefix(dbURL, "sqlite://"), nil
	case strings.HasPrefix(dbURL, "file:"), dbURL == ":memory:":
		return "sqlite3", dbURL, nil
	default:
		return "", "", fmt.Errorf("unsupported DB_URL scheme: %q", dbURL)
	}
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("error applying schema: %w", err)
	}
	return nil
}
