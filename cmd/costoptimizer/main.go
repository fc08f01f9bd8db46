package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/costoptimizer/backend/internal/config"
	"github.com/costoptimizer/backend/internal/container"
	"github.com/costoptimizer/backend/internal/jobs"
)

var rootCmd = &cobra.Command{
	Use:   "costoptimizer",
	Short: "Cloud cost optimizer dashboard backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), serve)
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Ingest yesterday's costs once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), fetchOnce)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the anomaly check once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), runJob(jobs.JobAnomalyCheck))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, fetchCmd, checkCmd)
	rootCmd.SilenceUsage = true
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// withContainer loads configuration, builds the container and runs fn.
func withContainer(ctx context.Context, fn func(context.Context, *container.Container) error) error {
	logger := newLogger(config.LoggingConfig{Level: os.Getenv("LOG_LEVEL"), Format: os.Getenv("LOG_FORMAT")}, os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return err
	}
	logger = newLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	ctr, err := container.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := ctr.Stop(stopCtx); err != nil {
			logger.Error("failed to stop container", "error", err)
		}
	}()

	return fn(ctx, ctr)
}

func runJob(name string) func(context.Context, *container.Container) error {
	return func(ctx context.Context, ctr *container.Container) error {
		return ctr.Scheduler().Run(ctx, name)
	}
}

// fetchOnce runs the cost fetch job. Without a billing provider the job is
// never registered, so that case is reported directly.
func fetchOnce(ctx context.Context, ctr *container.Container) error {
	if ctr.Ingestion() == nil {
		return jobs.ErrNoProvider
	}
	return runJob(jobs.JobCostFetch)(ctx, ctr)
}

func serve(ctx context.Context, ctr *container.Container) error {
	cfg := ctr.Config()
	logger := ctr.Logger()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      newRouter(ctr),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := ctr.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

// newLogger builds the process logger: JSON unless format is "text".
func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
