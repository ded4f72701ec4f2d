// Command issue_token mints a bearer token for an existing user, signed with the configured
// JWT_SECRET and JWT_ISSUER. It is an operator tool for local and staging environments.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/platform/config"
	"github.com/SscSPs/onesuite_backend/internal/repositories/database/pgsql"
	"github.com/SscSPs/onesuite_backend/internal/utils"
	"github.com/SscSPs/onesuite_backend/pkg/database"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	userID := flag.String("user", "", "user ID to use as the token subject (required)")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	skipCheck := flag.Bool("skip-user-check", false, "do not verify that the user exists and is active")
	flag.Parse()

	if *userID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.IsProduction {
		logger.Error("Refusing to mint tokens in production")
		os.Exit(1)
	}

	if !*skipCheck {
		if err := checkUser(cfg, *userID); err != nil {
			logger.Error("User check failed", slog.String("user_id", *userID), slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	token, err := utils.GenerateJWT(*userID, cfg.JWTSecret, *ttl, cfg.JWTIssuer)
	if err != nil {
		logger.Error("Failed to sign token", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Println(token)
}

func checkUser(cfg *config.Config, userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, database.PoolOptions{MaxConns: 1, Ping: true})
	if err != nil {
		return err
	}
	defer dbPool.Close()

	user, err := pgsql.NewRepositoryProvider(dbPool).UserRepo.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return fmt.Errorf("user %s is deactivated", userID)
	}
	return nil
}
