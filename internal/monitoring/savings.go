package monitoring

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// SavingsEntry is one tracked recommendation.
type SavingsEntry struct {
	Timestamp          time.Time `json:"timestamp"`
	RecommendationType string    `json:"recommendation_type"`
	PotentialSavings   float64   `json:"potential_savings"`
	Implemented        bool      `json:"implemented"`
	ActualSavings      float64   `json:"actual_savings"`
}

// TypeSavings groups savings for one recommendation type.
type TypeSavings struct {
	Potential float64 `json:"potential"`
	Actual    float64 `json:"actual"`
	Count     int     `json:"count"`
}

// SavingsReport summarizes the ledger over a trailing window.
type SavingsReport struct {
	PeriodDays                 int                    `json:"period_days"`
	TotalPotentialSavings      float64                `json:"total_potential_savings"`
	TotalActualSavings         float64                `json:"total_actual_savings"`
	SavingsRatePercent         float64                `json:"savings_rate_percent"`
	SavingsByType              map[string]TypeSavings `json:"savings_by_type"`
	TotalRecommendations       int                    `json:"total_recommendations"`
	ImplementedRecommendations int                    `json:"implemented_recommendations"`
	GeneratedAt                time.Time              `json:"generated_at"`
}

// SavingsLedger is an append-only, in-memory log of potential and realized
// savings.
type SavingsLedger struct {
	mu      sync.Mutex
	entries []SavingsEntry
	logger  *slog.Logger
	now     func() time.Time
}

// NewSavingsLedger creates an empty ledger.
func NewSavingsLedger(logger *slog.Logger) *SavingsLedger {
	return &SavingsLedger{
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the ledger clock.
func (l *SavingsLedger) WithClock(now func() time.Time) *SavingsLedger {
	l.now = now
	return l
}

// Track appends an entry. Actual savings equal the potential savings only
// when the recommendation was implemented.
func (l *SavingsLedger) Track(recType string, potential float64, implemented bool) SavingsEntry {
	entry := SavingsEntry{
		Timestamp:          l.now().UTC(),
		RecommendationType: recType,
		PotentialSavings:   potential,
		Implemented:        implemented,
	}
	if implemented {
		entry.ActualSavings = potential
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	if implemented {
		l.logger.Info("cost savings tracked", "type", recType, "saved", potential)
	} else {
		l.logger.Info("recommendation tracked", "type", recType, "potential_savings", potential)
	}
	return entry
}

// Totals sums entries recorded within the last days days.
func (l *SavingsLedger) Totals(days int) SavingsReport {
	now := l.now().UTC()
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)

	l.mu.Lock()
	var period []SavingsEntry
	for _, e := range l.entries {
		if !e.Timestamp.Before(cutoff) {
			period = append(period, e)
		}
	}
	l.mu.Unlock()

	potential, actual := decimal.Zero, decimal.Zero
	byType := make(map[string]TypeSavings)
	implemented := 0
	for _, e := range period {
		potential = potential.Add(decimal.NewFromFloat(e.PotentialSavings))
		actual = actual.Add(decimal.NewFromFloat(e.ActualSavings))

		t := byType[e.RecommendationType]
		t.Potential += e.PotentialSavings
		t.Actual += e.ActualSavings
		t.Count++
		byType[e.RecommendationType] = t

		if e.Implemented {
			implemented++
		}
	}

	rate := decimal.Zero
	if potential.IsPositive() {
		rate = actual.Div(potential).Mul(decimal.NewFromInt(100))
	}

	return SavingsReport{
		PeriodDays:                 days,
		TotalPotentialSavings:      Round(potential.InexactFloat64()),
		TotalActualSavings:         Round(actual.InexactFloat64()),
		SavingsRatePercent:         Round(rate.InexactFloat64()),
		SavingsByType:              byType,
		TotalRecommendations:       len(period),
		ImplementedRecommendations: implemented,
		GeneratedAt:                now,
	}
}

// Round rounds a currency amount to cents.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
