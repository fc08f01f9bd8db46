// Package model contains the core domain entities for the cost optimizer.
package model

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-day format used on the wire and in the store.
const DateLayout = "2006-01-02"

// Granularity represents time granularity for cost data.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityMonthly Granularity = "monthly"
)

// BaseEntity contains common fields for persisted entities.
type BaseEntity struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewBaseEntity creates a new BaseEntity with generated ID and timestamp.
func NewBaseEntity() BaseEntity {
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
	}
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysAgo returns midnight UTC n calendar days before now.
func DaysAgo(now time.Time, n int) time.Time {
	return Day(now).AddDate(0, 0, -n)
}

// Float returns a pointer to v, for optional numeric fields.
func Float(v float64) *float64 {
	return &v
}
