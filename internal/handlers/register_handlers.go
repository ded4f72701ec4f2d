package handlers

import (
	"fmt"
	"time"

	"github.com/SscSPs/onesuite_backend/cmd/docs"
	portssvc "github.com/SscSPs/onesuite_backend/internal/core/ports/services"
	"github.com/SscSPs/onesuite_backend/internal/middleware"
	"github.com/SscSPs/onesuite_backend/internal/platform/config"
	"github.com/SscSPs/onesuite_backend/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces.
// posthogClient may be nil.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	posthogClient *utils.PosthogClientWrapper,
) error {
	r.Use(cors.New(corsConfig(cfg)))

	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	if err := setupAPIV1Routes(r, cfg, services, posthogClient); err != nil {
		return err
	}

	setupSwaggerRoutes(r, cfg)
	return nil
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	c.AddAllowHeaders("Authorization")
	c.AllowCredentials = true
	if len(cfg.CORSAllowedOrigins) > 0 {
		c.AllowOrigins = cfg.CORSAllowedOrigins
	} else {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	}
	c.MaxAge = 12 * time.Hour
	return c
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	service *portssvc.ServiceContainer,
	posthogClient *utils.PosthogClientWrapper,
) error {
	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimit)
	if err != nil {
		return fmt.Errorf("invalid RATE_LIMIT %q: %w", cfg.RateLimit, err)
	}

	// Auth runs first so the limiter can key on the user
	v1 := r.Group("/api/v1",
		middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer),
		middleware.RateLimit(rateLimiter),
		middleware.PosthogMiddleware(posthogClient),
	)

	RegisterUserRoutes(v1, service.User)
	RegisterHierarchyRoutes(v1, service.Hierarchy)
	RegisterCommissionRoutes(v1, service.Commission, service.Approval)
	RegisterPayoutRoutes(v1, service.Payout)
	RegisterPaymentRoutes(v1, service.Payment)
	RegisterTaxRoutes(v1, service.Tax)
	RegisterDashboardRoutes(v1, service.Analytics)
	return nil
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
