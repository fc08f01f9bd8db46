package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/costoptimizer/backend/internal/config"
	"github.com/costoptimizer/backend/internal/model"
	"github.com/costoptimizer/backend/internal/repository"
)

// IdleComputeRule flags recent compute records with usage below the idle
// threshold. Savings extrapolate one day's cost to a month.
type IdleComputeRule struct {
	BaseRule
	match      string
	threshold  float64
	lookback   int
	multiplier float64
}

// NewIdleComputeRule creates the idle compute rule from cfg.
func NewIdleComputeRule(cfg config.RulesConfig) *IdleComputeRule {
	return &IdleComputeRule{
		BaseRule: BaseRule{
			id:       "idle-compute",
			name:     "Idle compute instances",
			category: model.CategoryIdleInstances,
		},
		match:      cfg.IdleServiceMatch,
		threshold:  cfg.IdleUsageThreshold,
		lookback:   cfg.IdleLookbackDays,
		multiplier: cfg.IdleSavingsMultiplier,
	}
}

func (r *IdleComputeRule) Evaluate(ctx context.Context, costs repository.CostRepository, now time.Time) ([]model.Recommendation, error) {
	records, err := costs.ListByServiceSince(ctx, r.match, model.DaysAgo(now, r.lookback))
	if err != nil {
		return nil, err
	}

	recs := []model.Recommendation{}
	for _, c := range records {
		if c.Usage >= r.threshold {
			continue
		}
		recs = append(recs, model.Recommendation{
			Type:             model.RecommendationTypeIdleEC2,
			Service:          c.Service,
			Date:             c.Date.Format(model.DateLayout),
			Cost:             model.Float(c.Cost),
			Usage:            model.Float(c.Usage),
			Suggestion:       "Stop or resize this idle EC2 instance",
			PotentialSavings: c.Cost * r.multiplier,
		})
	}
	return recs, nil
}

// UnderusedStorageRule flags recent database storage records with usage
// below the storage threshold and suggests halving the allocation.
type UnderusedStorageRule struct {
	BaseRule
	match         string
	threshold     float64
	lookback      int
	targetFactor  float64
	savingsFactor float64
}

// NewUnderusedStorageRule creates the underused storage rule from cfg.
func NewUnderusedStorageRule(cfg config.RulesConfig) *UnderusedStorageRule {
	return &UnderusedStorageRule{
		BaseRule: BaseRule{
			id:       "underused-storage",
			name:     "Underused database storage",
			category: model.CategoryUnderusedRDS,
		},
		match:         cfg.StorageServiceMatch,
		threshold:     cfg.StorageUsageThreshold,
		lookback:      cfg.StorageLookbackDays,
		targetFactor:  cfg.StorageTargetFactor,
		savingsFactor: cfg.StorageSavingsFactor,
	}
}

func (r *UnderusedStorageRule) Evaluate(ctx context.Context, costs repository.CostRepository, now time.Time) ([]model.Recommendation, error) {
	records, err := costs.ListByServiceSince(ctx, r.match, model.DaysAgo(now, r.lookback))
	if err != nil {
		return nil, err
	}

	recs := []model.Recommendation{}
	for _, c := range records {
		if c.Usage >= r.threshold {
			continue
		}
		target := c.Usage * r.targetFactor
		recs = append(recs, model.Recommendation{
			Type:              model.RecommendationTypeUnderusedRDS,
			Service:           c.Service,
			Date:              c.Date.Format(model.DateLayout),
			Cost:              model.Float(c.Cost),
			Usage:             model.Float(c.Usage),
			TargetUtilization: model.Float(target),
			Suggestion:        fmt.Sprintf("Reduce RDS storage from current to %.1f%% utilization", target),
			PotentialSavings:  c.Cost * r.savingsFactor,
		})
	}
	return recs, nil
}
