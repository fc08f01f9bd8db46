package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/costoptimizer/backend/internal/apierrors"
	"github.com/costoptimizer/backend/internal/monitoring"
)

// MonitoringHandler exposes the health snapshot, performance log and savings
// ledger.
type MonitoringHandler struct {
	health  *monitoring.HealthChecker
	metrics *monitoring.Metrics
	ledger  *monitoring.SavingsLedger
}

func NewMonitoringHandler(health *monitoring.HealthChecker, metrics *monitoring.Metrics, ledger *monitoring.SavingsLedger) *MonitoringHandler {
	return &MonitoringHandler{health: health, metrics: metrics, ledger: ledger}
}

// TrackSavingsRequest is the body of POST /monitoring/savings.
type TrackSavingsRequest struct {
	RecommendationType string  `json:"recommendation_type"`
	PotentialSavings   float64 `json:"potential_savings"`
	Implemented        bool    `json:"implemented"`
}

// Health handles GET /monitoring/health.
func (h *MonitoringHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.health.Snapshot(r.Context()))
}

// Performance handles GET /monitoring/performance.
func (h *MonitoringHandler) Performance(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.metrics.Report())
}

// Savings handles GET /monitoring/savings?days=.
func (h *MonitoringHandler) Savings(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(r, "days", 30)
	if !ok {
		apierrors.NewBadRequestError("days must be a positive integer").Write(w, r)
		return
	}
	WriteJSON(w, http.StatusOK, h.ledger.Totals(days))
}

// TrackSavings handles POST /monitoring/savings.
func (h *MonitoringHandler) TrackSavings(w http.ResponseWriter, r *http.Request) {
	var req TrackSavingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.NewBadRequestError("invalid request body").Write(w, r)
		return
	}
	req.RecommendationType = strings.TrimSpace(req.RecommendationType)
	if req.RecommendationType == "" {
		apierrors.NewValidationError("recommendation_type is required", nil).Write(w, r)
		return
	}
	if req.PotentialSavings < 0 {
		apierrors.NewValidationError("potential_savings must not be negative", nil).Write(w, r)
		return
	}

	entry := h.ledger.Track(req.RecommendationType, req.PotentialSavings, req.Implemented)
	WriteJSON(w, http.StatusCreated, entry)
}
