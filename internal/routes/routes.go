package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sony/gobreaker"

	"github.com/fossabot/hull-customerio/internal/handlers"
	"github.com/fossabot/hull-customerio/internal/middleware"
)

// Options carries the route-level settings.
type Options struct {
	ConnectorSecret  string
	IsConfigured     func() bool
	InboundRateLimit int
}

// SetupRoutes configures the routes for the application.
func SetupRoutes(
	router *gin.Engine,
	notifyHandler *handlers.NotifyHandler,
	webhookHandler *handlers.WebhookHandler,
	statusHandler *handlers.StatusHandler,
	redisClient *redis.Client,
	opts Options,
) {
	router.Use(middleware.CorrelationIDMiddleware())

	// Initialize circuit breaker
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "notifications",
		Timeout: 30 * time.Second,
	})

	// Platform notifications
	platform := router.Group("/")
	platform.Use(middleware.AuthMiddleware(opts.ConnectorSecret))
	platform.Use(middleware.ConfiguredMiddleware(opts.IsConfigured))
	platform.Use(middleware.CircuitBreakerMiddleware(cb))
	{
		platform.POST("/notify", notifyHandler.Notify)
		platform.POST("/batch", notifyHandler.Batch)
	}

	// Service callbacks
	webhooks := router.Group("/webhooks")
	webhooks.Use(middleware.RateLimitMiddleware(redisClient, "webhooks", opts.InboundRateLimit, time.Minute))
	{
		webhooks.POST("", webhookHandler.Receive)
	}

	router.GET("/status", statusHandler.GetStatus)

	// Health check endpoint
	router.GET("/health", handlers.HealthCheck)
}
