package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/costoptimizer/backend/internal/apierrors"
	"github.com/costoptimizer/backend/internal/budget"
	"github.com/costoptimizer/backend/internal/repository"
)

// BudgetHandler serves the budget depletion simulation.
type BudgetHandler struct {
	repo   repository.CostRepository
	logger *slog.Logger
}

func NewBudgetHandler(repo repository.CostRepository, logger *slog.Logger) *BudgetHandler {
	return &BudgetHandler{repo: repo, logger: logger}
}

// Simulate handles POST /budget/simulate?budget_amount=&months=.
func (h *BudgetHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("budget_amount")
	if raw == "" {
		apierrors.NewBadRequestError("budget_amount is required").Write(w, r)
		return
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil || amount < 0 {
		apierrors.NewBadRequestError("budget_amount must be a non-negative number").Write(w, r)
		return
	}
	months, ok := queryInt(r, "months", budget.DefaultMonths)
	if !ok {
		apierrors.NewBadRequestError("months must be a positive integer").Write(w, r)
		return
	}

	records, err := h.repo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list costs", "error", err)
		apierrors.NewInternalError("failed to load cost data").Write(w, r)
		return
	}

	sim, err := budget.Simulate(records, amount, months)
	if errors.Is(err, budget.ErrNoData) {
		WriteJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		apierrors.NewBadRequestError(err.Error()).Write(w, r)
		return
	}
	WriteJSON(w, http.StatusOK, sim)
}
