// Package container provides dependency injection.
package container

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/costoptimizer/backend/internal/auth"
	"github.com/costoptimizer/backend/internal/completion"
	"github.com/costoptimizer/backend/internal/config"
	"github.com/costoptimizer/backend/internal/ingestion"
	"github.com/costoptimizer/backend/internal/jobs"
	"github.com/costoptimizer/backend/internal/monitoring"
	"github.com/costoptimizer/backend/internal/narrative"
	"github.com/costoptimizer/backend/internal/notification"
	"github.com/costoptimizer/backend/internal/provider"
	"github.com/costoptimizer/backend/internal/provider/aws"
	"github.com/costoptimizer/backend/internal/recommendations"
	"github.com/costoptimizer/backend/internal/recommendations/rules"
	"github.com/costoptimizer/backend/internal/repository"
)

// Container holds all application dependencies.
type Container struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Repositories
	costRepo repository.CostRepository
	userRepo repository.UserRepository

	// Services
	provider   provider.Provider
	ingestion  *ingestion.Service
	recEngine  *recommendations.Engine
	generator  *narrative.Generator
	dispatcher *notification.Dispatcher
	jwtMgr     *auth.JWTManager
	scheduler  *jobs.Scheduler
	costJobs   *jobs.CostJobs

	// Monitoring
	metrics *monitoring.Metrics
	ledger  *monitoring.SavingsLedger
	health  *monitoring.HealthChecker
}

// New connects to the database and builds the container.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	db, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("database connected", "host", cfg.Database.Host, "database", cfg.Database.Name)

	var (
		billing provider.Provider
		archive notification.PutObjectAPI
	)
	if cfg.AWS.Enabled {
		awsProvider, err := aws.NewProvider(ctx, cfg.AWS, logger)
		if err != nil {
			logger.Warn("failed to initialize AWS provider", "error", err)
		} else {
			billing = awsProvider
			logger.Info("AWS provider registered", "region", cfg.AWS.Region)
		}
	}
	if cfg.Notification.ArchiveBucket != "" {
		awsCfg, err := aws.LoadConfig(ctx, cfg.AWS)
		if err != nil {
			logger.Warn("alert archive disabled", "error", err)
		} else {
			archive = s3.NewFromConfig(awsCfg)
		}
	}

	c, err := NewWithDB(ctx, cfg, db, billing, archive, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// NewWithDB builds the container around an open database. billing and
// archive may be nil.
func NewWithDB(ctx context.Context, cfg *config.Config, db *sql.DB, billing provider.Provider, archive notification.PutObjectAPI, logger *slog.Logger) (*Container, error) {
	c := &Container{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		provider: billing,
	}

	// Initialize repositories and ensure tables exist
	costRepo := repository.NewPostgresCostRepository(db)
	if err := costRepo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	userRepo := repository.NewPostgresUserRepository(db)
	if err := userRepo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	c.costRepo = costRepo
	c.userRepo = userRepo

	jwtMgr, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT manager: %w", err)
	}
	c.jwtMgr = jwtMgr

	if billing != nil {
		c.ingestion = ingestion.NewService(billing, costRepo, logger)
	}

	// Initialize recommendation engine with all rules
	c.recEngine = recommendations.NewEngine(costRepo, logger)
	rules.RegisterAll(c.recEngine, cfg.Rules)
	logger.Info("recommendation engine initialized", "rules", len(c.recEngine.Rules()))

	c.generator = narrative.NewGenerator(costRepo, completion.NewClient(cfg.Completion), logger)
	c.dispatcher = notification.NewDispatcher(cfg.Notification, archive, logger)

	c.metrics = monitoring.NewMetrics(logger)
	c.ledger = monitoring.NewSavingsLedger(logger)
	c.health = monitoring.NewHealthChecker(costRepo, c.metrics, c.ledger, logger)
	if billing != nil {
		c.health.WithProvider(billing)
	}

	// Initialize scheduler
	c.scheduler = jobs.NewScheduler(cfg.Jobs.Timeout, logger)
	c.costJobs = jobs.NewCostJobs(c.ingestion, c.recEngine, c.dispatcher, c.ledger, costRepo, cfg.Notification.SpikeAlerts, logger)
	if err := c.costJobs.Register(c.scheduler, cfg.Jobs); err != nil {
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	return c, nil
}

// Start starts background jobs.
func (c *Container) Start() error {
	return c.scheduler.Start()
}

// Stop gracefully stops all components.
func (c *Container) Stop(ctx context.Context) error {
	c.logger.Info("stopping container components")

	done := make(chan struct{})
	go func() {
		c.scheduler.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.logger.Warn("scheduler did not stop before shutdown deadline")
	}

	return c.db.Close()
}

// Accessors

func (c *Container) Config() *config.Config                        { return c.cfg }
func (c *Container) Logger() *slog.Logger                          { return c.logger }
func (c *Container) DB() *sql.DB                                   { return c.db }
func (c *Container) Provider() provider.Provider                   { return c.provider }
func (c *Container) CostRepository() repository.CostRepository     { return c.costRepo }
func (c *Container) UserRepository() repository.UserRepository     { return c.userRepo }
func (c *Container) Ingestion() *ingestion.Service                 { return c.ingestion }
func (c *Container) RecommendationEngine() *recommendations.Engine { return c.recEngine }
func (c *Container) NarrativeGenerator() *narrative.Generator      { return c.generator }
func (c *Container) Dispatcher() *notification.Dispatcher          { return c.dispatcher }
func (c *Container) JWTManager() *auth.JWTManager                  { return c.jwtMgr }
func (c *Container) Scheduler() *jobs.Scheduler                    { return c.scheduler }
func (c *Container) CostJobs() *jobs.CostJobs                      { return c.costJobs }
func (c *Container) Metrics() *monitoring.Metrics                  { return c.metrics }
func (c *Container) SavingsLedger() *monitoring.SavingsLedger      { return c.ledger }
func (c *Container) HealthChecker() *monitoring.HealthChecker      { return c.health }
