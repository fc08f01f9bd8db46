package model

// BudgetMonth is one projected month of a budget simulation.
type BudgetMonth struct {
	Month           int     `json:"month"`
	ProjectedCost   float64 `json:"projected_cost"`
	RemainingBudget float64 `json:"remaining_budget"`
	BudgetExceeded  bool    `json:"budget_exceeded"`
}

// BudgetSimulation projects average monthly spend against a budget ceiling.
type BudgetSimulation struct {
	BudgetAmount         float64       `json:"budget_amount"`
	AverageMonthlySpend  float64       `json:"average_monthly_spend"`
	Simulation           []BudgetMonth `json:"simulation"`
	MonthsUntilDepletion *int          `json:"months_until_depletion"`
}
