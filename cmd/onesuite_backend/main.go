package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/core/services"
	"github.com/SscSPs/onesuite_backend/internal/handlers"
	"github.com/SscSPs/onesuite_backend/internal/middleware"
	"github.com/SscSPs/onesuite_backend/internal/platform/config"
	"github.com/SscSPs/onesuite_backend/internal/repositories/cache"
	"github.com/SscSPs/onesuite_backend/internal/repositories/database/pgsql"
	"github.com/SscSPs/onesuite_backend/internal/utils"
	"github.com/SscSPs/onesuite_backend/pkg/database"
	"github.com/gin-gonic/gin"

	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/onesuite_backend/internal/core/ports/services"
)

// @title OneSuite Commissions API
// @version 1.0
// @description Commission tracking, approval, payout and tax back office.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, database.PoolOptions{
		ConnectTimeout: 5 * time.Second,
		Ping:           cfg.EnableDBCheck,
	})
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePgxPool(dbPool)
	logger.Info("Database connection pool established.")

	if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dashboardCache := setupDashboardCache(ctx, cfg, logger)

	cipher, err := setupFieldCipher(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize field encryption", slog.String("error", err.Error()))
		os.Exit(1)
	}

	serviceContainer := services.NewServiceContainer(cfg, pgsql.NewRepositoryProvider(dbPool), dashboardCache, cipher)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	posthogClient := utils.InitializePosthogClient(cfg.PosthogAPIKey, cfg.PosthogEndpoint, logger)
	defer posthogClient.Close()

	if err := handlers.RegisterRoutes(r, cfg, serviceContainer, posthogClient); err != nil {
		logger.Error("Failed to register routes", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// setupDashboardCache returns nil when REDIS_URL is unset or unreachable; dashboards are then computed on every read.
func setupDashboardCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) portsrepo.DashboardCache {
	if cfg.RedisURL == "" {
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rdb, err := cache.NewRedisClient(pingCtx, cfg.RedisURL)
	if err != nil {
		logger.Warn("Redis unavailable, dashboard caching disabled", slog.String("error", err.Error()))
		return nil
	}
	logger.Info("Dashboard cache enabled", slog.Duration("ttl", cfg.DashboardCacheTTL))
	return cache.NewRedisDashboardCache(rdb, "onesuite:")
}

func setupFieldCipher(cfg *config.Config, logger *slog.Logger) (portssvc.FieldEncryptor, error) {
	key := cfg.FieldEncryptionKey
	if key == "" {
		generated, err := utils.GenerateFieldKey()
		if err != nil {
			return nil, err
		}
		logger.Warn("Using an ephemeral field encryption key; stored TINs and bank numbers will be unreadable after restart")
		key = generated
	}
	cipher, err := utils.NewFieldCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher, nil
}
