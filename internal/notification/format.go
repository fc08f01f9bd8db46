package notification

import (
	"fmt"
	"strings"

	"github.com/costoptimizer/backend/internal/model"
)

// MaxPerCategory caps the recommendations listed per alert section.
const MaxPerCategory = 5

// NoAnomaliesMessage is the whole alert for an empty recommendation set.
const NoAnomaliesMessage = "✅ No cost anomalies detected today."

// FormatAnomalyAlert renders a recommendation set as a single alert body.
func FormatAnomalyAlert(set model.RecommendationSet) string {
	total := set.Total()
	if total == 0 {
		return NoAnomaliesMessage
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚨 Cost Optimization Alert: %d issues found\n\n", total)
	for _, category := range set.Categories() {
		recs := set[category]
		if len(recs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "**%s:**\n", categoryTitle(category))
		writeRecommendations(&b, recs, "Check service")
		b.WriteString("\n")
	}
	b.WriteString("📊 Check the dashboard for full details.")
	return b.String()
}

// SpikeSummary describes one service's period-over-period increase.
type SpikeSummary struct {
	Service         string
	IncreasePercent float64
	RecentCost      float64
	PreviousCost    float64
}

// SpikeFromRecommendation extracts the spike figures of a cost_spike
// recommendation.
func SpikeFromRecommendation(r model.Recommendation) SpikeSummary {
	s := SpikeSummary{Service: r.Service}
	if r.IncreasePercent != nil {
		s.IncreasePercent = *r.IncreasePercent
	}
	if r.RecentCost != nil {
		s.RecentCost = *r.RecentCost
	}
	if r.PreviousCost != nil {
		s.PreviousCost = *r.PreviousCost
	}
	return s
}

// FormatCostSpikeAlert renders the short single-service spike message.
func FormatCostSpikeAlert(s SpikeSummary) string {
	var b strings.Builder
	b.WriteString("⚠️ Cost Spike Alert\n\n")
	fmt.Fprintf(&b, "Service: %s\n", s.Service)
	fmt.Fprintf(&b, "Cost increase: %.1f%%\n", s.IncreasePercent)
	fmt.Fprintf(&b, "Recent cost: $%.2f\n", s.RecentCost)
	fmt.Fprintf(&b, "Previous cost: $%.2f\n\n", s.PreviousCost)
	b.WriteString("Investigate immediately!")
	return b.String()
}

// FormatDailyReport renders the daily digest with up to five
// recommendations.
func FormatDailyReport(dailyCost float64, recs []model.Recommendation) string {
	var b strings.Builder
	b.WriteString("💰 Daily Cloud Cost Report\n\n")
	fmt.Fprintf(&b, "Today's Total Cost: $%.2f\n\n", dailyCost)
	if len(recs) > 0 {
		b.WriteString("📋 Top Recommendations:\n")
		writeRecommendations(&b, recs, "Recommendation")
		b.WriteString("\n")
	}
	b.WriteString("Keep optimizing your cloud costs! ☁️")
	return b.String()
}

// formatDailyChat renders the shorter chat variant of the daily digest.
func formatDailyChat(dailyCost float64, recs []model.Recommendation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💰 Daily Cost Report: $%.2f\n", dailyCost)
	if len(recs) > 0 {
		b.WriteString("Top recommendations:\n")
		for i, r := range recs {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "• %s\n", textOr(r, "Check service"))
		}
	}
	return b.String()
}

func writeRecommendations(b *strings.Builder, recs []model.Recommendation, fallback string) {
	for i, r := range recs {
		if i == MaxPerCategory {
			break
		}
		fmt.Fprintf(b, "• %s\n", textOr(r, fallback))
		if r.PotentialSavings > 0 {
			fmt.Fprintf(b, "  💰 Potential savings: $%.2f\n", r.PotentialSavings)
		}
	}
}

func textOr(r model.Recommendation, fallback string) string {
	if t := r.Text(); t != "" {
		return t
	}
	return fallback
}

// categoryTitle turns "idle_instances" into "Idle Instances".
func categoryTitle(c model.Category) string {
	words := strings.Fields(strings.ReplaceAll(string(c), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// htmlBody converts a plain alert into the HTML email body.
func htmlBody(text string) string {
	return strings.ReplaceAll(text, "\n", "<br>")
}
