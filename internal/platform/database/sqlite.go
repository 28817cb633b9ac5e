package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens a SQLite database through the pure-Go modernc driver.
// SQLite allows one writer at a time, so the pool is capped at a single
// connection; that also serializes id assignment inside the store.
func OpenSQLite(ctx context.Context, dsn string) (*Pool, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := ping(ctx, db); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Pool{db: db, dialect: DialectSQLite}, nil
}
