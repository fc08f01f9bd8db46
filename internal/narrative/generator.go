// Package narrative asks a text-completion service for cost optimization
// advice and structures its free-text answer.
package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/costoptimizer/backend/internal/completion"
	"github.com/costoptimizer/backend/internal/model"
	"github.com/costoptimizer/backend/internal/repository"
)

const (
	systemInstruction = "You are a cloud cost optimization expert. Analyze the provided cost data and provide specific, actionable recommendations to reduce cloud spending. Focus on AWS services and common optimization strategies."
	promptPrefix      = "Analyze this cloud cost data and provide 3-5 specific recommendations to optimize costs:\n\n"
)

// Generator produces narrative recommendations from all stored costs.
type Generator struct {
	costs     repository.CostRepository
	completer completion.Completer
	logger    *slog.Logger
}

// NewGenerator creates a new Generator.
func NewGenerator(costs repository.CostRepository, completer completion.Completer, logger *slog.Logger) *Generator {
	return &Generator{
		costs:     costs,
		completer: completer,
		logger:    logger,
	}
}

// Generate returns up to five ai_recommendation items. A missing credential,
// an empty store, or a completion failure each yield a single sentinel item
// instead of an error. Only store failures are returned as errors.
func (g *Generator) Generate(ctx context.Context) ([]model.Recommendation, error) {
	if !g.completer.Configured() {
		return []model.Recommendation{{
			Type:    model.RecommendationTypeError,
			Message: "OpenAI API key not configured",
		}}, nil
	}

	records, err := g.costs.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list costs: %w", err)
	}
	if len(records) == 0 {
		return []model.Recommendation{{
			Type:    model.RecommendationTypeInfo,
			Message: "No cost data available for AI analysis",
		}}, nil
	}

	text, err := g.completer.Complete(ctx, systemInstruction, promptPrefix+Summarize(records))
	if err != nil {
		g.logger.Error("completion request failed", "error", err)
		return []model.Recommendation{{
			Type:    model.RecommendationTypeError,
			Message: fmt.Sprintf("AI analysis failed: %v", err),
		}}, nil
	}

	return Parse(text), nil
}

// Summarize renders the total cost and a per-service breakdown sorted by
// cost, highest first.
func Summarize(records []*model.CostRecord) string {
	totals := make(map[string]float64)
	var total float64
	for _, r := range records {
		totals[r.Service] += r.Cost
		total += r.Cost
	}

	items := make([]model.CostBreakdownItem, 0, len(totals))
	for name, amount := range totals {
		item := model.CostBreakdownItem{Name: name, Amount: amount}
		if total > 0 {
			item.Percentage = amount / total * 100
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Amount != items[j].Amount {
			return items[i].Amount > items[j].Amount
		}
		return items[i].Name < items[j].Name
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Total Monthly Cost: $%.2f\n\nService Breakdown:\n", total)
	for _, item := range items {
		fmt.Fprintf(&b, "- %s: $%.2f (%.1f%%)\n", item.Name, item.Amount, item.Percentage)
	}
	return b.String()
}
