package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/costoptimizer/backend/internal/apierrors"
	"github.com/costoptimizer/backend/internal/auth"
	"github.com/costoptimizer/backend/internal/container"
	"github.com/costoptimizer/backend/internal/handler"
	"github.com/costoptimizer/backend/internal/monitoring"
)

func newRouter(ctr *container.Container) http.Handler {
	cfg := ctr.Config()
	logger := ctr.Logger()

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(apierrors.ErrorHandler)
	r.Use(monitoring.Middleware(ctr.Metrics()))
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := auth.NewHandler(ctr.JWTManager(), ctr.UserRepository(), logger)
	costHandler := handler.NewCostHandler(ctr.CostRepository(), ctr.Ingestion(), logger)
	recHandler := handler.NewRecommendationHandler(ctr.RecommendationEngine(), ctr.NarrativeGenerator(), logger)
	budgetHandler := handler.NewBudgetHandler(ctr.CostRepository(), logger)
	monHandler := handler.NewMonitoringHandler(ctr.HealthChecker(), ctr.Metrics(), ctr.SavingsLedger())
	jobHandler := handler.NewJobHandler(ctr.Scheduler())

	requireAuth := auth.Middleware(ctr.JWTManager(), ctr.UserRepository(), logger)

	// Unauthenticated
	r.Get("/", handler.Root)
	r.Get("/health", handler.Health)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/token", authHandler.Token)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		// Costs
		r.Get("/costs/daily", costHandler.Daily)
		r.Post("/costs/fetch", costHandler.Fetch)

		// Recommendations
		r.Get("/recommendations", recHandler.List)
		r.Get("/ai-recommendations", recHandler.AI)

		// Budget
		r.Post("/budget/simulate", budgetHandler.Simulate)

		// Monitoring
		r.Get("/monitoring/health", monHandler.Health)
		r.Get("/monitoring/performance", monHandler.Performance)
		r.Get("/monitoring/savings", monHandler.Savings)
		r.Post("/monitoring/savings", monHandler.TrackSavings)

		// Jobs
		r.Get("/jobs", jobHandler.List)
		r.Post("/jobs/{name}/run", jobHandler.Run)
	})

	return r
}
