// Package ingestion pulls daily billing data into the cost record store.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/costoptimizer/backend/internal/provider"
	"github.com/costoptimizer/backend/internal/repository"
)

// Result reports the outcome of one ingestion run.
type Result struct {
	Fetched int     `json:"fetched"`
	Stored  int     `json:"stored"`
	Skipped int     `json:"skipped"`
	Total   float64 `json:"total_cost"`
}

// Service fetches cost items from a billing provider and stores the ones not
// already present.
type Service struct {
	provider provider.Provider
	costs    repository.CostRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new ingestion service.
func NewService(p provider.Provider, costs repository.CostRepository, logger *slog.Logger) *Service {
	return &Service{
		provider: p,
		costs:    costs,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the clock used to compute the fetch window.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// FetchYesterday ingests the previous calendar day. Items whose
// (date, service, account) key is already stored are skipped, so revised
// amounts for a day already ingested are not picked up.
func (s *Service) FetchYesterday(ctx context.Context) (Result, error) {
	return s.Fetch(ctx, provider.YesterdayRequest(s.now()))
}

// Fetch ingests the given request window.
func (s *Service) Fetch(ctx context.Context, req provider.CostRequest) (Result, error) {
	var res Result

	resp, err := s.provider.GetCosts(ctx, req)
	if err != nil {
		return res, fmt.Errorf("fetch costs from %s: %w", s.provider.Name(), err)
	}
	res.Fetched = len(resp.Costs)

	seen := make(map[string]bool, len(resp.Costs))
	for _, item := range resp.Costs {
		rec := item.Record()
		if seen[rec.Key()] {
			res.Skipped++
			continue
		}
		seen[rec.Key()] = true

		exists, err := s.costs.Exists(ctx, rec.Date, rec.Service, rec.AccountID)
		if err != nil {
			return res, err
		}
		if exists {
			res.Skipped++
			continue
		}

		if err := s.costs.Create(ctx, rec); err != nil {
			return res, err
		}
		res.Stored++
		res.Total += rec.Cost
	}

	s.logger.Info("cost ingestion finished",
		"provider", s.provider.Name(),
		"fetched", res.Fetched,
		"stored", res.Stored,
		"skipped", res.Skipped,
	)
	return res, nil
}
