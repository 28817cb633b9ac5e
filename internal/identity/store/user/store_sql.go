package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tuition/internal/identity/models"
	"tuition/internal/sentinel"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type queries struct {
	insert   string
	list     string
	findByID string
}

var postgresQueries = queries{
	insert:   `INSERT INTO users (name, email, password_hash, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
	list:     `SELECT id, name, email, password_hash, created_at FROM users ORDER BY id`,
	findByID: `SELECT id, name, email, password_hash, created_at FROM users WHERE id = $1`,
}

var sqliteQueries = queries{
	insert:   `INSERT INTO users (name, email, password_hash, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
	list:     `SELECT id, name, email, password_hash, created_at FROM users ORDER BY id`,
	findByID: `SELECT id, name, email, password_hash, created_at FROM users WHERE id = ?`,
}

// SQLStore persists users in PostgreSQL or SQLite. Ids come from the
// table's auto-increment key.
type SQLStore struct {
	db *sql.DB
	q  queries
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, q: postgresQueries}
}

// NewSQLite constructs a SQLite-backed user store.
func NewSQLite(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, q: sqliteQueries}
}

func (s *SQLStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}
	out := *user
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx, s.q.insert, out.Name, out.Email, out.PasswordHash, out.CreatedAt).
		Scan(&out.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("email %s: %w", user.Email, sentinel.ErrAlreadyUsed)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &out, nil
}

func (s *SQLStore) List(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, s.q.list)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *SQLStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.q.findByID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// Ping reports whether the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u         models.User
		createdAt time.Time
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &createdAt); err != nil {
		return nil, err
	}
	u.CreatedAt = createdAt.UTC()
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"))
	}
	return false
}
