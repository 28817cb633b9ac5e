// Package database opens the SQL backends of the record-keeping stores and
// applies their migrations.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Config tunes the Postgres connection pool.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

var errNotConfigured = errors.New("database not configured")

// Pool is an open store database together with the goose dialect of its
// migrations. A nil *Pool stands for a store without a database; its
// methods are safe to call.
type Pool struct {
	db      *sql.DB
	dialect string
}

// OpenPostgres connects through the pgx stdlib driver and pings within 5s.
func OpenPostgres(ctx context.Context, cfg Config) (*Pool, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("postgres: %w", errNotConfigured)
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := ping(ctx, db); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{db: db, dialect: DialectPostgres}, nil
}

func ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// DB returns the handle, or nil for a nil Pool.
func (p *Pool) DB() *sql.DB {
	if p == nil {
		return nil
	}
	return p.db
}

// Dialect is the goose dialect name of the pool's driver.
func (p *Pool) Dialect() string {
	if p == nil {
		return ""
	}
	return p.dialect
}

// Migrate applies the migrations in dir with the pool's dialect.
func (p *Pool) Migrate(ctx context.Context, dir string) error {
	if p == nil || p.db == nil {
		return errNotConfigured
	}
	return Migrate(ctx, p.db, p.dialect, dir)
}

// Health pings the database. It doubles as the store's readiness check.
func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return errNotConfigured
	}
	return p.db.PingContext(ctx)
}

func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
