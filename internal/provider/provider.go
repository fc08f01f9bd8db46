// Package provider defines billing provider interfaces and types.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/costoptimizer/backend/internal/model"
)

// ErrUpstream wraps every failure returned by a billing API.
var ErrUpstream = errors.New("billing api error")

// Provider defines the interface for billing data sources.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// Health checks provider connectivity.
	Health(ctx context.Context) HealthStatus

	// GetCosts retrieves per-service cost and usage for the given request.
	GetCosts(ctx context.Context, req CostRequest) (*CostResponse, error)
}

// HealthStatus represents provider health.
type HealthStatus struct {
	Healthy     bool           `json:"healthy"`
	Message     string         `json:"message"`
	LastChecked time.Time      `json:"last_checked"`
	Details     map[string]any `json:"details,omitempty"`
}

// CostRequest defines parameters for cost queries. EndDate is exclusive.
type CostRequest struct {
	StartDate   time.Time
	EndDate     time.Time
	Granularity model.Granularity
}

// YesterdayRequest returns a daily request covering the calendar day before
// now.
func YesterdayRequest(now time.Time) CostRequest {
	today := model.Day(now)
	return CostRequest{
		StartDate:   today.AddDate(0, 0, -1),
		EndDate:     today,
		Granularity: model.GranularityDaily,
	}
}

// CostResponse contains cost query results.
type CostResponse struct {
	Costs       []CostItem `json:"costs"`
	TotalAmount float64    `json:"total_amount"`
	Currency    string     `json:"currency"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
}

// CostItem represents a single per-service cost data point.
type CostItem struct {
	Date      time.Time `json:"date"`
	Service   string    `json:"service"`
	Amount    float64   `json:"amount"`
	Usage     float64   `json:"usage"`
	AccountID string    `json:"account_id"`
}

// Record converts the item into a cost record.
func (c CostItem) Record() *model.CostRecord {
	return model.NewCostRecord(c.Date, c.Service, c.Amount, c.Usage, c.AccountID)
}
