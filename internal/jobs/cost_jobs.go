package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/costoptimizer/backend/internal/config"
	"github.com/costoptimizer/backend/internal/ingestion"
	"github.com/costoptimizer/backend/internal/model"
	"github.com/costoptimizer/backend/internal/monitoring"
	"github.com/costoptimizer/backend/internal/notification"
	"github.com/costoptimizer/backend/internal/recommendations"
	"github.com/costoptimizer/backend/internal/repository"
)

// Job names.
const (
	JobCostFetch    = "cost-fetch"
	JobAnomalyCheck = "anomaly-check"
	JobDailyReport  = "daily-report"
)

// ErrNoProvider is returned by the fetch job when no billing provider is
// configured.
var ErrNoProvider = errors.New("no billing provider configured")

// dailyReportSize is the number of recommendations in the daily digest.
const dailyReportSize = 5

// CostJobs holds the daily ingestion, anomaly check and report tasks.
type CostJobs struct {
	ingestion   *ingestion.Service
	engine      *recommendations.Engine
	dispatcher  *notification.Dispatcher
	ledger      *monitoring.SavingsLedger
	costs       repository.CostRepository
	spikeAlerts bool
	logger      *slog.Logger
	now         func() time.Time
}

// NewCostJobs creates the job set.
func NewCostJobs(
	ingest *ingestion.Service,
	engine *recommendations.Engine,
	dispatcher *notification.Dispatcher,
	ledger *monitoring.SavingsLedger,
	costs repository.CostRepository,
	spikeAlerts bool,
	logger *slog.Logger,
) *CostJobs {
	return &CostJobs{
		ingestion:   ingest,
		engine:      engine,
		dispatcher:  dispatcher,
		ledger:      ledger,
		costs:       costs,
		spikeAlerts: spikeAlerts,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock replaces the clock used for the daily report window.
func (j *CostJobs) WithClock(now func() time.Time) *CostJobs {
	j.now = now
	return j
}

// Register schedules the jobs enabled in cfg. The fetch job needs a billing
// provider and the daily report needs a schedule.
func (j *CostJobs) Register(s *Scheduler, cfg config.JobsConfig) error {
	if j.ingestion != nil {
		if err := s.Register(JobCostFetch, cfg.CostFetchSchedule, j.FetchDailyCosts); err != nil {
			return err
		}
	} else {
		j.logger.Warn("no billing provider configured, cost fetch job disabled")
	}
	if err := s.Register(JobAnomalyCheck, cfg.AnomalyCheckSchedule, j.CheckAnomalies); err != nil {
		return err
	}
	if cfg.DailyReportSchedule != "" {
		if err := s.Register(JobDailyReport, cfg.DailyReportSchedule, j.SendDailyReport); err != nil {
			return err
		}
	}
	return nil
}

// FetchDailyCosts ingests yesterday's costs.
func (j *CostJobs) FetchDailyCosts(ctx context.Context) error {
	if j.ingestion == nil {
		return ErrNoProvider
	}
	res, err := j.ingestion.FetchYesterday(ctx)
	if err != nil {
		return err
	}
	j.logger.Info("daily cost fetch finished", "stored", res.Stored, "skipped", res.Skipped)
	return nil
}

// CheckAnomalies runs the recommendation engine, records every finding in
// the savings ledger and alerts when anything was found.
func (j *CostJobs) CheckAnomalies(ctx context.Context) error {
	set, err := j.engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("run recommendation engine: %w", err)
	}

	recs := set.Flatten()
	for _, r := range recs {
		j.ledger.Track(string(r.Type), r.PotentialSavings, false)
	}

	j.logger.Info("anomaly check finished", "issues", len(recs))
	if len(recs) == 0 {
		return nil
	}

	j.dispatcher.SendAnomalyAlerts(ctx, set)
	if j.spikeAlerts {
		for _, r := range set[model.CategoryCostSpikes] {
			j.dispatcher.SendCostSpikeAlert(ctx, notification.SpikeFromRecommendation(r))
		}
	}
	return nil
}

// SendDailyReport sends yesterday's total and the recommendations with the
// largest potential savings.
func (j *CostJobs) SendDailyReport(ctx context.Context) error {
	now := j.now()
	total, err := j.costs.SumBetween(ctx, model.DaysAgo(now, 1), model.Day(now))
	if err != nil {
		return fmt.Errorf("sum daily cost: %w", err)
	}

	set, err := j.engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("run recommendation engine: %w", err)
	}

	j.dispatcher.SendDailyReport(ctx, monitoring.Round(total), TopBySavings(set.Flatten(), dailyReportSize))
	return nil
}

// TopBySavings returns at most n recommendations ordered by potential
// savings, largest first. Ties keep their original order.
func TopBySavings(recs []model.Recommendation, n int) []model.Recommendation {
	out := make([]model.Recommendation, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(a, b int) bool { return out[a].PotentialSavings > out[b].PotentialSavings })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
