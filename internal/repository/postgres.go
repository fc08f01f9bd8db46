// Package repository provides PostgreSQL repository implementations.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/costoptimizer/backend/internal/model"
)

const costColumns = `id, date, service, cost, usage, account_id, created_at`

// PostgresCostRepository implements CostRepository for PostgreSQL.
type PostgresCostRepository struct {
	db *sql.DB
}

// NewPostgresCostRepository creates a new PostgresCostRepository.
func NewPostgresCostRepository(db *sql.DB) *PostgresCostRepository {
	return &PostgresCostRepository{db: db}
}

func (r *PostgresCostRepository) Create(ctx context.Context, cost *model.CostRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cloud_costs (id, date, service, cost, usage, account_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, cost.ID, cost.Date, cost.Service, cost.Cost, cost.Usage, cost.AccountID, cost.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert cost record: %w", err)
	}
	return nil
}

// Exists reports whether a record with the same day, service and account is
// already stored.
func (r *PostgresCostRepository) Exists(ctx context.Context, date time.Time, service, accountID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM cloud_costs WHERE date = $1 AND service = $2 AND account_id = $3
		)
	`, model.Day(date), service, accountID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check cost record: %w", err)
	}
	return exists, nil
}

func (r *PostgresCostRepository) ListAll(ctx context.Context) ([]*model.CostRecord, error) {
	return r.query(ctx, `SELECT `+costColumns+` FROM cloud_costs ORDER BY date, created_at, id`)
}

// ListByServiceSince returns records whose service name contains match,
// dated on or after since.
func (r *PostgresCostRepository) ListByServiceSince(ctx context.Context, match string, since time.Time) ([]*model.CostRecord, error) {
	return r.query(ctx, `
		SELECT `+costColumns+` FROM cloud_costs
		WHERE strpos(service, $1) > 0 AND date >= $2
		ORDER BY date, created_at, id
	`, match, model.Day(since))
}

func (r *PostgresCostRepository) ListSince(ctx context.Context, since time.Time) ([]*model.CostRecord, error) {
	return r.query(ctx, `
		SELECT `+costColumns+` FROM cloud_costs
		WHERE date >= $1
		ORDER BY date, created_at, id
	`, model.Day(since))
}

// ListBetween returns records dated in [start, end).
func (r *PostgresCostRepository) ListBetween(ctx context.Context, start, end time.Time) ([]*model.CostRecord, error) {
	return r.query(ctx, `
		SELECT `+costColumns+` FROM cloud_costs
		WHERE date >= $1 AND date < $2
		ORDER BY date, created_at, id
	`, model.Day(start), model.Day(end))
}

// SumBetween returns the total cost of records dated in [start, end).
func (r *PostgresCostRepository) SumBetween(ctx context.Context, start, end time.Time) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(cost), 0) FROM cloud_costs WHERE date >= $1 AND date < $2
	`, model.Day(start), model.Day(end)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum cost records: %w", err)
	}
	return total, nil
}

func (r *PostgresCostRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cloud_costs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cost records: %w", err)
	}
	return n, nil
}

// Ping checks that the store is reachable.
func (r *PostgresCostRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// EnsureSchema creates the cloud_costs table if it doesn't exist.
func (r *PostgresCostRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS cloud_costs (
			id UUID PRIMARY KEY,
			date DATE NOT NULL,
			service VARCHAR(255) NOT NULL,
			cost DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (cost >= 0),
			usage DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (usage >= 0),
			account_id VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create cloud_costs table: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_cloud_costs_key ON cloud_costs (date, service, account_id)`)
	if err != nil {
		return fmt.Errorf("failed to create cloud_costs index: %w", err)
	}
	return nil
}

func (r *PostgresCostRepository) query(ctx context.Context, query string, args ...any) ([]*model.CostRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cost records: %w", err)
	}
	defer rows.Close()

	costs := []*model.CostRecord{}
	for rows.Next() {
		var c model.CostRecord
		if err := rows.Scan(&c.ID, &c.Date, &c.Service, &c.Cost, &c.Usage, &c.AccountID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cost record: %w", err)
		}
		c.Date = model.Day(c.Date)
		costs = append(costs, &c)
	}
	return costs, rows.Err()
}
