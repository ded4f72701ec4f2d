// Command analytics_rollup writes the daily commission metric and payout summary snapshots for one day.
// Runs are idempotent; rows already present for the day are left untouched.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/core/services"
	"github.com/SscSPs/onesuite_backend/internal/platform/config"
	"github.com/SscSPs/onesuite_backend/internal/repositories/database/pgsql"
	"github.com/SscSPs/onesuite_backend/pkg/database"
)

const dateLayout = "2006-01-02"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format(dateLayout)
	dateFlag := flag.String("date", yesterday, "metric date (YYYY-MM-DD), defaults to yesterday in UTC")
	timeout := flag.Duration("timeout", 5*time.Minute, "abort the rollup after this long")
	flag.Parse()

	date, err := time.Parse(dateLayout, *dateFlag)
	if err != nil {
		logger.Error("Invalid -date", slog.String("date", *dateFlag), slog.String("error", err.Error()))
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, database.PoolOptions{MaxConns: 2, Ping: true})
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePgxPool(dbPool)

	// Rollups never touch encrypted fields or the dashboard cache.
	container := services.NewServiceContainer(cfg, pgsql.NewRepositoryProvider(dbPool), nil, nil)

	result, err := container.Analytics.RunDailyRollup(ctx, date)
	if err != nil {
		logger.Error("Daily rollup failed", slog.String("date", *dateFlag), slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Daily rollup complete",
		slog.String("date", result.MetricDate.Format(dateLayout)),
		slog.Int64("metrics_created", result.MetricsCreated),
		slog.Int64("summaries_created", result.SummariesCreated))
}
