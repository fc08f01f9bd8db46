package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/costoptimizer/backend/internal/config"
	"github.com/costoptimizer/backend/internal/model"
	"github.com/costoptimizer/backend/internal/repository"
)

// CostSpikeRule compares per-service totals of the most recent window with
// the window before it. Spikes carry no savings estimate; they need
// investigation.
type CostSpikeRule struct {
	BaseRule
	window    int
	threshold decimal.Decimal
}

// NewCostSpikeRule creates the cost spike rule from cfg.
func NewCostSpikeRule(cfg config.RulesConfig) *CostSpikeRule {
	return &CostSpikeRule{
		BaseRule: BaseRule{
			id:       "cost-spike",
			name:     "Cost spikes",
			category: model.CategoryCostSpikes,
		},
		window:    cfg.SpikeWindowDays,
		threshold: decimal.NewFromFloat(cfg.SpikeThresholdPercent),
	}
}

// Evaluate sums the windows [now-w, ∞) and [now-2w, now-w). Services keep
// the order they first appear in the recent window.
func (r *CostSpikeRule) Evaluate(ctx context.Context, costs repository.CostRepository, now time.Time) ([]model.Recommendation, error) {
	cutoff := model.DaysAgo(now, r.window)

	recent, err := costs.ListSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	previous, err := costs.ListBetween(ctx, model.DaysAgo(now, 2*r.window), cutoff)
	if err != nil {
		return nil, err
	}

	recentTotals, order := sumByService(recent)
	previousTotals, _ := sumByService(previous)

	hundred := decimal.NewFromInt(100)
	recs := []model.Recommendation{}
	for _, service := range order {
		prev := previousTotals[service]
		if !prev.IsPositive() {
			continue
		}
		cur := recentTotals[service]
		increase := cur.Sub(prev).Div(prev).Mul(hundred)
		if increase.LessThanOrEqual(r.threshold) {
			continue
		}
		pct := increase.InexactFloat64()
		recs = append(recs, model.Recommendation{
			Type:             model.RecommendationTypeCostSpike,
			Service:          service,
			RecentCost:       model.Float(cur.InexactFloat64()),
			PreviousCost:     model.Float(prev.InexactFloat64()),
			IncreasePercent:  model.Float(pct),
			Suggestion:       fmt.Sprintf("Investigate %s cost increase of %.1f%%", service, pct),
			PotentialSavings: 0,
		})
	}
	return recs, nil
}

func sumByService(records []*model.CostRecord) (map[string]decimal.Decimal, []string) {
	totals := make(map[string]decimal.Decimal)
	var order []string
	for _, c := range records {
		sum, ok := totals[c.Service]
		if !ok {
			order = append(order, c.Service)
		}
		totals[c.Service] = sum.Add(decimal.NewFromFloat(c.Cost))
	}
	return totals, order
}
