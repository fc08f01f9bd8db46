// Package repository defines data access interfaces.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/costoptimizer/backend/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// CostRepository defines cost record data access methods. Records are
// written once and never updated.
type CostRepository interface {
	Create(ctx context.Context, cost *model.CostRecord) error
	Exists(ctx context.Context, date time.Time, service, accountID string) (bool, error)
	ListAll(ctx context.Context) ([]*model.CostRecord, error)
	ListByServiceSince(ctx context.Context, match string, since time.Time) ([]*model.CostRecord, error)
	ListSince(ctx context.Context, since time.Time) ([]*model.CostRecord, error)
	ListBetween(ctx context.Context, start, end time.Time) ([]*model.CostRecord, error)
	SumBetween(ctx context.Context, start, end time.Time) (float64, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// UserRepository defines dashboard account data access methods.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}
