package payment

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tuition/internal/ledger/models"
)

type queries struct {
	insert       string
	list         string
	listByUserID string
}

var postgresQueries = queries{
	insert:       `INSERT INTO payments (user_id, amount, created_at) VALUES ($1, $2, $3) RETURNING id`,
	list:         `SELECT id, user_id, amount, created_at FROM payments ORDER BY id`,
	listByUserID: `SELECT id, user_id, amount, created_at FROM payments WHERE user_id = $1 ORDER BY id`,
}

var sqliteQueries = queries{
	insert:       `INSERT INTO payments (user_id, amount, created_at) VALUES (?, ?, ?) RETURNING id`,
	list:         `SELECT id, user_id, amount, created_at FROM payments ORDER BY id`,
	listByUserID: `SELECT id, user_id, amount, created_at FROM payments WHERE user_id = ? ORDER BY id`,
}

// SQLStore persists payments in PostgreSQL or SQLite. user_id carries no
// foreign key; users live in another service's database.
type SQLStore struct {
	db *sql.DB
	q  queries
}

// NewPostgres constructs a PostgreSQL-backed payment store.
func NewPostgres(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, q: postgresQueries}
}

// NewSQLite constructs a SQLite-backed payment store.
func NewSQLite(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, q: sqliteQueries}
}

func (s *SQLStore) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment == nil {
		return nil, fmt.Errorf("payment is required")
	}
	out := *payment
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx, s.q.insert, out.UserID, out.Amount, out.CreatedAt).Scan(&out.ID)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	return &out, nil
}

func (s *SQLStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Payment, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if filter.UserID != nil {
		rows, err = s.db.QueryContext(ctx, s.q.listByUserID, *filter.UserID)
	} else {
		rows, err = s.db.QueryContext(ctx, s.q.list)
	}
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]*models.Payment, 0)
	for rows.Next() {
		var (
			p         models.Payment
			createdAt time.Time
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Amount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.CreatedAt = createdAt.UTC()
		payments = append(payments, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// Ping reports whether the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
