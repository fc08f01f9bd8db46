// Package rules holds the threshold rules evaluated by the recommendation
// engine.
package rules

import (
	"github.com/costoptimizer/backend/internal/config"
	"github.com/costoptimizer/backend/internal/model"
	rec "github.com/costoptimizer/backend/internal/recommendations"
)

// BaseRule carries the identity shared by every rule.
type BaseRule struct {
	id, name string
	category model.Category
}

func (b *BaseRule) ID() string               { return b.id }
func (b *BaseRule) Name() string             { return b.name }
func (b *BaseRule) Category() model.Category { return b.category }

// RegisterAll registers the idle compute, underused storage and cost spike
// rules in presentation order.
func RegisterAll(engine *rec.Engine, cfg config.RulesConfig) {
	engine.Register(NewIdleComputeRule(cfg))
	engine.Register(NewUnderusedStorageRule(cfg))
	engine.Register(NewCostSpikeRule(cfg))
}
