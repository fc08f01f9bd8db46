package handler

import (
	"log/slog"
	"net/http"

	"github.com/costoptimizer/backend/internal/apierrors"
	"github.com/costoptimizer/backend/internal/model"
	"github.com/costoptimizer/backend/internal/narrative"
	"github.com/costoptimizer/backend/internal/recommendations"
)

// RecommendationHandler serves rule-based and narrative recommendations.
type RecommendationHandler struct {
	engine    *recommendations.Engine
	generator *narrative.Generator
	logger    *slog.Logger
}

func NewRecommendationHandler(engine *recommendations.Engine, generator *narrative.Generator, logger *slog.Logger) *RecommendationHandler {
	return &RecommendationHandler{engine: engine, generator: generator, logger: logger}
}

// List handles GET /recommendations.
func (h *RecommendationHandler) List(w http.ResponseWriter, r *http.Request) {
	set, err := h.engine.Run(r.Context())
	if err != nil {
		h.logger.Error("recommendation engine failed", "error", err)
		apierrors.NewInternalError("failed to generate recommendations").Write(w, r)
		return
	}
	WriteJSON(w, http.StatusOK, set)
}

// AI handles GET /ai-recommendations. A missing or failing completion
// service still answers 200 with a single error item.
func (h *RecommendationHandler) AI(w http.ResponseWriter, r *http.Request) {
	recs, err := h.generator.Generate(r.Context())
	if err != nil {
		h.logger.Error("narrative recommendations failed", "error", err)
		apierrors.NewInternalError("failed to generate recommendations").Write(w, r)
		return
	}
	WriteJSON(w, http.StatusOK, map[string][]model.Recommendation{"recommendations": recs})
}
