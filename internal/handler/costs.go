package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/costoptimizer/backend/internal/apierrors"
	"github.com/costoptimizer/backend/internal/ingestion"
	"github.com/costoptimizer/backend/internal/provider"
	"github.com/costoptimizer/backend/internal/repository"
)

// CostHandler serves stored cost records and the manual ingestion trigger.
type CostHandler struct {
	repo   repository.CostRepository
	ingest *ingestion.Service
	logger *slog.Logger
}

// NewCostHandler creates a CostHandler. ingest may be nil when no billing
// provider is configured.
func NewCostHandler(repo repository.CostRepository, ingest *ingestion.Service, logger *slog.Logger) *CostHandler {
	return &CostHandler{repo: repo, ingest: ingest, logger: logger}
}

// FetchResponse is the body of POST /costs/fetch.
type FetchResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
	ingestion.Result
}

// Daily handles GET /costs/daily.
func (h *CostHandler) Daily(w http.ResponseWriter, r *http.Request) {
	records, err := h.repo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list costs", "error", err)
		apierrors.NewInternalError("failed to list costs").Write(w, r)
		return
	}
	WriteJSON(w, http.StatusOK, records)
}

// Fetch handles POST /costs/fetch.
func (h *CostHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	if h.ingest == nil {
		apierrors.NewServiceUnavailableError("billing provider").Write(w, r)
		return
	}

	res, err := h.ingest.FetchYesterday(r.Context())
	if err != nil {
		h.logger.Error("cost fetch failed", "error", err)
		if errors.Is(err, provider.ErrUpstream) {
			apierrors.NewUpstreamError(err).Write(w, r)
			return
		}
		apierrors.NewInternalError("failed to store costs").Write(w, r)
		return
	}

	WriteJSON(w, http.StatusOK, FetchResponse{
		Message: fmt.Sprintf("Successfully fetched and stored %d cost records", res.Stored),
		Count:   res.Stored,
		Result:  res,
	})
}
