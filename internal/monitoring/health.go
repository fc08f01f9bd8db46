package monitoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/costoptimizer/backend/internal/model"
	"github.com/costoptimizer/backend/internal/provider"
	"github.com/costoptimizer/backend/internal/repository"
)

// HealthReport is the system health snapshot.
type HealthReport struct {
	DatabaseHealthy    bool                   `json:"database_healthy"`
	TotalCostRecords   int                    `json:"total_cost_records"`
	RecentCosts7d      float64                `json:"recent_costs_7d"`
	AvgDailyCost7d     float64                `json:"avg_daily_cost_7d"`
	PerformanceMetrics PerformanceReport      `json:"performance_metrics"`
	CostSavings        SavingsReport          `json:"cost_savings"`
	BillingProvider    *provider.HealthStatus `json:"billing_provider,omitempty"`
	Timestamp          time.Time              `json:"timestamp"`
}

// HealthChecker assembles health snapshots from the store and the
// in-process logs.
type HealthChecker struct {
	costs   repository.CostRepository
	metrics *Metrics
	ledger  *SavingsLedger
	billing provider.Provider
	logger  *slog.Logger
	now     func() time.Time
}

// NewHealthChecker creates a new HealthChecker.
func NewHealthChecker(costs repository.CostRepository, metrics *Metrics, ledger *SavingsLedger, logger *slog.Logger) *HealthChecker {
	return &HealthChecker{
		costs:   costs,
		metrics: metrics,
		ledger:  ledger,
		logger:  logger,
		now:     time.Now,
	}
}

// WithProvider adds the billing provider's health to every snapshot.
func (h *HealthChecker) WithProvider(p provider.Provider) *HealthChecker {
	h.billing = p
	return h
}

// WithClock replaces the clock used for the 7-day window.
func (h *HealthChecker) WithClock(now func() time.Time) *HealthChecker {
	h.now = now
	return h
}

// Snapshot reports store reachability, recent spend, and the performance
// and savings reports. An unreachable store is reported, not returned.
func (h *HealthChecker) Snapshot(ctx context.Context) HealthReport {
	now := h.now()
	report := HealthReport{
		PerformanceMetrics: h.metrics.Report(),
		CostSavings:        h.ledger.Totals(30),
		Timestamp:          now.UTC(),
	}
	if h.billing != nil {
		status := h.billing.Health(ctx)
		report.BillingProvider = &status
	}

	if err := h.costs.Ping(ctx); err != nil {
		h.logger.Error("database health check failed", "error", err)
		return report
	}
	report.DatabaseHealthy = true

	count, err := h.costs.Count(ctx)
	if err != nil {
		h.logger.Error("cost record count failed", "error", err)
		return report
	}
	report.TotalCostRecords = count

	recent, err := h.costs.ListSince(ctx, model.DaysAgo(now, 7))
	if err != nil {
		h.logger.Error("recent cost query failed", "error", err)
		return report
	}
	var total float64
	for _, r := range recent {
		total += r.Cost
	}
	report.RecentCosts7d = Round(total)
	if len(recent) > 0 {
		report.AvgDailyCost7d = Round(total / 7)
	}
	return report
}
