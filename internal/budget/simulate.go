// Package budget projects average monthly spend against a budget ceiling.
package budget

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/costoptimizer/backend/internal/model"
)

// DefaultMonths is the simulation horizon when none is given.
const DefaultMonths = 12

var (
	// ErrNoData is returned when there are no cost records to average.
	ErrNoData = errors.New("No cost data available for simulation")
	// ErrInvalidMonths is returned for a horizon below one month.
	ErrInvalidMonths = errors.New("months must be at least 1")
)

// Simulate averages spend per calendar month across records and subtracts
// it from amount month by month, stopping at the horizon or once the budget
// is used up.
func Simulate(records []*model.CostRecord, amount float64, months int) (*model.BudgetSimulation, error) {
	if months < 1 {
		return nil, ErrInvalidMonths
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}

	avg := AverageMonthlySpend(records)
	sim := &model.BudgetSimulation{
		BudgetAmount:        amount,
		AverageMonthlySpend: round(avg),
		Simulation:          []model.BudgetMonth{},
	}

	remaining := decimal.NewFromFloat(amount)
	monthly := decimal.NewFromFloat(avg)
	for month := 1; month <= months; month++ {
		remaining = remaining.Sub(monthly)

		left := decimal.Max(remaining, decimal.Zero)
		sim.Simulation = append(sim.Simulation, model.BudgetMonth{
			Month:           month,
			ProjectedCost:   round(avg),
			RemainingBudget: left.Round(2).InexactFloat64(),
			BudgetExceeded:  remaining.IsNegative(),
		})

		if !remaining.IsPositive() {
			n := len(sim.Simulation)
			sim.MonthsUntilDepletion = &n
			break
		}
	}
	return sim, nil
}

// AverageMonthlySpend returns total cost divided by the number of distinct
// calendar months present in records.
func AverageMonthlySpend(records []*model.CostRecord) float64 {
	byMonth := make(map[string]decimal.Decimal)
	for _, r := range records {
		key := r.Date.Format("2006-01")
		byMonth[key] = byMonth[key].Add(decimal.NewFromFloat(r.Cost))
	}
	if len(byMonth) == 0 {
		return 0
	}

	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	total := decimal.Zero
	for _, k := range keys {
		total = total.Add(byMonth[k])
	}
	return total.Div(decimal.NewFromInt(int64(len(byMonth)))).InexactFloat64()
}

func round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
