package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// CostRecord is one day's billed cost and usage for one service under one
// account. Records are immutable once written.
type CostRecord struct {
	BaseEntity
	Date      time.Time `json:"date" db:"date"`
	Service   string    `json:"service" db:"service"`
	Cost      float64   `json:"cost" db:"cost"`
	Usage     float64   `json:"usage" db:"usage"`
	AccountID string    `json:"account_id" db:"account_id"`
}

// NewCostRecord builds a record for the given day, clamping negative cost and
// usage readings to zero.
func NewCostRecord(date time.Time, service string, cost, usage float64, accountID string) *CostRecord {
	return &CostRecord{
		BaseEntity: NewBaseEntity(),
		Date:       Day(date),
		Service:    service,
		Cost:       nonNegative(cost),
		Usage:      nonNegative(usage),
		AccountID:  accountID,
	}
}

// Key returns the de-duplication key of the record.
func (c *CostRecord) Key() string {
	return fmt.Sprintf("%s|%s|%s", c.Date.Format(DateLayout), c.Service, c.AccountID)
}

// MarshalJSON renders the date as a calendar day.
func (c CostRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string  `json:"id"`
		Date      string  `json:"date"`
		Service   string  `json:"service"`
		Cost      float64 `json:"cost"`
		Usage     float64 `json:"usage"`
		AccountID string  `json:"account_id"`
	}{
		ID:        c.ID.String(),
		Date:      c.Date.Format(DateLayout),
		Service:   c.Service,
		Cost:      c.Cost,
		Usage:     c.Usage,
		AccountID: c.AccountID,
	})
}

// CostBreakdownItem represents a single item in a cost breakdown.
type CostBreakdownItem struct {
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
