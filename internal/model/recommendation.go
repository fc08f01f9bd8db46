package model

import "sort"

// RecommendationType represents types of recommendations.
type RecommendationType string

const (
	RecommendationTypeIdleEC2      RecommendationType = "idle_ec2"
	RecommendationTypeUnderusedRDS RecommendationType = "underused_rds"
	RecommendationTypeCostSpike    RecommendationType = "cost_spike"
	RecommendationTypeAI           RecommendationType = "ai_recommendation"
	RecommendationTypeError        RecommendationType = "error"
	RecommendationTypeInfo         RecommendationType = "info"
)

// Category names a rule-based recommendation group.
type Category string

const (
	CategoryIdleInstances Category = "idle_instances"
	CategoryUnderusedRDS  Category = "underused_rds"
	CategoryCostSpikes    Category = "cost_spikes"
)

// RuleCategories lists the rule-based categories in presentation order.
var RuleCategories = []Category{CategoryIdleInstances, CategoryUnderusedRDS, CategoryCostSpikes}

// Recommendation is a single cost optimization suggestion. It is recomputed
// on every request and never persisted.
type Recommendation struct {
	Type             RecommendationType `json:"type"`
	Service          string             `json:"service,omitempty"`
	Suggestion       string             `json:"suggestion,omitempty"`
	PotentialSavings float64            `json:"potential_savings"`

	// idle_ec2 / underused_rds
	Date              string   `json:"date,omitempty"`
	Cost              *float64 `json:"cost,omitempty"`
	Usage             *float64 `json:"usage,omitempty"`
	TargetUtilization *float64 `json:"target_utilization,omitempty"`

	// cost_spike
	RecentCost      *float64 `json:"recent_cost,omitempty"`
	PreviousCost    *float64 `json:"previous_cost,omitempty"`
	IncreasePercent *float64 `json:"increase_percent,omitempty"`

	// ai_recommendation / error / info
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Text returns the most descriptive line of the recommendation.
func (r Recommendation) Text() string {
	switch {
	case r.Suggestion != "":
		return r.Suggestion
	case r.Description != "":
		return r.Description
	default:
		return r.Message
	}
}

// RecommendationSet maps a category to its ordered recommendations.
type RecommendationSet map[Category][]Recommendation

// NewRecommendationSet returns a set with every rule category present and
// empty.
func NewRecommendationSet() RecommendationSet {
	set := make(RecommendationSet, len(RuleCategories))
	for _, c := range RuleCategories {
		set[c] = []Recommendation{}
	}
	return set
}

// Total returns the number of recommendations across all categories.
func (s RecommendationSet) Total() int {
	n := 0
	for _, recs := range s {
		n += len(recs)
	}
	return n
}

// Categories returns the categories of the set, rule categories first in
// presentation order, then any others alphabetically.
func (s RecommendationSet) Categories() []Category {
	out := make([]Category, 0, len(s))
	seen := make(map[Category]bool, len(s))
	for _, c := range RuleCategories {
		if _, ok := s[c]; ok {
			out = append(out, c)
			seen[c] = true
		}
	}
	var extra []Category
	for c := range s {
		if !seen[c] {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// Flatten returns every recommendation in category order.
func (s RecommendationSet) Flatten() []Recommendation {
	var out []Recommendation
	for _, c := range s.Categories() {
		out = append(out, s[c]...)
	}
	return out
}
