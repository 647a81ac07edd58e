package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/orderhook/internal/api/handlers"
	"github.com/jafarshop/orderhook/internal/api/middleware"
	"github.com/jafarshop/orderhook/internal/config"
	"github.com/jafarshop/orderhook/internal/ratelimit"
	"github.com/jafarshop/orderhook/internal/repository"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, repos *repository.Repositories, limiters *ratelimit.Set, ingestor handlers.OrderIngestor, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))

	// The webhook endpoint is called from arbitrary third-party form
	// builders, so CORS is wide open including preflight
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type", "Authorization",
			"X-Webhook-Signature", "X-Signature", "X-Hub-Signature-256",
			"X-Webhook-Secret", "X-Webhook-Timestamp",
		},
		MaxAge: 12 * time.Hour,
	}))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := router.Group("/v1")
	{
		// Public webhook route (untrusted traffic, permissive limiter)
		webhookRoutes := v1.Group("/webhooks")
		webhookRoutes.Use(middleware.RateLimit(limiters.Webhook))
		{
			webhookRoutes.POST("/orders", handlers.HandleOrderWebhook(cfg, ingestor, logger))
		}

		// Admin routes (authenticated, moderate limiter)
		adminRoutes := v1.Group("/admin")
		adminRoutes.Use(middleware.RateLimit(limiters.API))
		adminRoutes.Use(middleware.AdminAuth(cfg.Admin, logger))
		{
			adminRoutes.GET("/orders/:id", handlers.HandleGetOrder(repos, logger))
			adminRoutes.POST("/ratelimit/reset", handlers.HandleRateLimitReset(limiters, logger))
			adminRoutes.POST("/ratelimit/clear", handlers.HandleRateLimitClear(limiters, logger))
		}
	}

	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
