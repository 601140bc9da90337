package quotelog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema creates the table the store writes to.
const Schema = `
	CREATE TABLE IF NOT EXISTS quote_logs (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		request_id    TEXT NOT NULL,
		tier          TEXT NOT NULL,
		billing_cycle TEXT NOT NULL,
		assets        BIGINT NOT NULL,
		total_monthly NUMERIC(14, 2) NOT NULL,
		total_annual  NUMERIC(14, 2) NOT NULL,
		cached        BOOLEAN NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the quote_logs table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create quote_logs: %w", err)
	}
	return nil
}

func (s *PostgresStore) Log(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO quote_logs (request_id, tier, billing_cycle, assets, total_monthly, total_annual, cached)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := s.db.QueryRow(ctx, query,
		entry.RequestID, entry.Tier, entry.BillingCycle, entry.Assets,
		entry.TotalMonthly, entry.TotalAnnual, entry.Cached,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to log quote: %w", err)
	}

	return nil
}

func (s *PostgresStore) CountByTier(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	query := `
		SELECT tier, COUNT(*)
		FROM quote_logs
		WHERE created_at BETWEEN $1 AND $2
		GROUP BY tier
	`
	rows, err := s.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote logs: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var tier string
		var n int64
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, fmt.Errorf("failed to scan quote count: %w", err)
		}
		counts[tier] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quote counts: %w", err)
	}

	return counts, nil
}
