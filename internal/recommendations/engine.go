// Package recommendations runs cost optimization rules over stored cost
// records.
package recommendations

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/costoptimizer/backend/internal/model"
	"github.com/costoptimizer/backend/internal/repository"
)

// Rule produces recommendations for one category from read-only store
// queries.
type Rule interface {
	ID() string
	Name() string
	Category() model.Category
	Evaluate(ctx context.Context, costs repository.CostRepository, now time.Time) ([]model.Recommendation, error)
}

// Engine evaluates every registered rule and assembles a RecommendationSet.
type Engine struct {
	costs  repository.CostRepository
	logger *slog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	rules []Rule
}

// NewEngine creates an engine with no rules registered.
func NewEngine(costs repository.CostRepository, logger *slog.Logger) *Engine {
	return &Engine{
		costs:  costs,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the clock the rules measure their windows from.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Register appends a rule. Rules run in registration order.
func (e *Engine) Register(rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule)
	e.logger.Debug("rule registered", "rule", rule.ID(), "name", rule.Name(), "category", rule.Category())
}

// Rules returns the registered rules.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Rule(nil), e.rules...)
}

// Run evaluates every rule against the store. Every rule category is
// present in the result even when empty. A store failure in any rule fails
// the whole run.
func (e *Engine) Run(ctx context.Context) (model.RecommendationSet, error) {
	now := e.now()
	set := model.NewRecommendationSet()

	for _, rule := range e.Rules() {
		recs, err := rule.Evaluate(ctx, e.costs, now)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID(), err)
		}
		c := rule.Category()
		if set[c] == nil {
			set[c] = []model.Recommendation{}
		}
		set[c] = append(set[c], recs...)
	}

	e.logger.Debug("recommendation run finished", "total", set.Total())
	return set, nil
}
