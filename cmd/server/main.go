package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fossabot/hull-customerio/internal/config"
	"github.com/fossabot/hull-customerio/internal/filter"
	"github.com/fossabot/hull-customerio/internal/handlers"
	"github.com/fossabot/hull-customerio/internal/models"
	"github.com/fossabot/hull-customerio/internal/ratelimit"
	"github.com/fossabot/hull-customerio/internal/repository"
	"github.com/fossabot/hull-customerio/internal/routes"
	"github.com/fossabot/hull-customerio/internal/services"
	"github.com/fossabot/hull-customerio/internal/syncagent"
	"github.com/fossabot/hull-customerio/pkg/logger"
	"github.com/fossabot/hull-customerio/pkg/metrics"
	"github.com/fossabot/hull-customerio/pkg/rabbitmq"
)

const statusCacheTTL = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logr := logger.New(cfg.LogLevel)
	if cfg.ConnectorSecret == "" {
		logr.Warn("CONNECTOR_SECRET is empty; platform notifications will be rejected")
	}

	// Initialize database
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logr.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})
	defer redisClient.Close()

	metricsCollector := metrics.New()

	// Initialize RabbitMQ
	mqManager, err := rabbitmq.NewManager(cfg.RabbitMQURL, logr)
	if err != nil {
		logr.Error("failed to connect to RabbitMQ", slog.Any("error", err))
		os.Exit(1)
	}
	defer mqManager.Close()

	if err := mqManager.DeclarePlatformTopology(); err != nil {
		logr.Error("failed to declare rabbitmq topology", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize repositories
	statusStore, err := repository.NewStatusStore(db)
	if err != nil {
		logr.Error("failed to migrate status store", slog.Any("error", err))
		os.Exit(1)
	}
	redisRepo := repository.NewRedisRepository(redisClient)

	// Initialize services
	limiters := ratelimit.NewRegistry(cfg.Customerio.RateLimit, cfg.Customerio.RateWindow, nil)
	customerio := services.NewCustomerioClient(services.CustomerioOptions{
		BaseURL:   cfg.Customerio.TrackURL,
		SiteID:    cfg.Customerio.SiteID,
		APIKey:    cfg.Customerio.APIKey,
		Timeout:   cfg.Customerio.Timeout,
		ChunkSize: cfg.Customerio.ChunkSize,
		Limiter:   limiters.Bucket(cfg.Customerio.SiteID),
	})
	publisher := services.NewPlatformPublisher(mqManager.Connection(), cfg.ConnectorID)
	idempotencyService := services.NewIdempotencyService(redisRepo, cfg.WebhookDedupTTL)

	agent := syncagent.New(customerio, publisher, metricsCollector, logr, syncagent.Options{
		Filter: filter.Options{
			SynchronizedSegments:    cfg.Sync.Segments,
			SynchronizedEvents:      cfg.Sync.Events,
			IgnoreUsersWithoutEmail: cfg.Sync.IgnoreUsersWithoutEmail,
			DeletionEnabled:         cfg.Sync.DeletionEnabled,
			UserIDMapping:           cfg.Sync.UserIDMapping,
			Namespace:               models.Namespace(cfg.Sync.Namespace),
		},
		Attributes:      cfg.Sync.Attributes,
		AnonymousEvents: cfg.Sync.AnonymousEvents,
		Concurrency:     cfg.Sync.Concurrency,
	})
	statusChecker := services.NewStatusChecker(cfg.ConnectorID, cfg.Sync.Segments, agent, statusStore, redisRepo, statusCacheTTL)

	// Initialize handlers
	tasks := &handlers.Tasks{}
	notifyHandler := handlers.NewNotifyHandler(agent, tasks, logr)
	webhookHandler := handlers.NewWebhookHandler(idempotencyService, publisher, metricsCollector, tasks, logr, cfg.Sync.UserIDMapping)
	statusHandler := handlers.NewStatusHandler(statusChecker, logr)

	// Initialize router
	router := gin.Default()
	router.Use(metricsCollector.GinMiddleware())
	router.GET("/metrics", gin.WrapH(metricsCollector.Handler()))

	// Setup routes
	routes.SetupRoutes(router, notifyHandler, webhookHandler, statusHandler, redisClient, routes.Options{
		ConnectorSecret:  cfg.ConnectorSecret,
		IsConfigured:     agent.IsConfigured,
		InboundRateLimit: cfg.InboundRateLimit,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Error("server listen failed", slog.Any("error", err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("server forced to shutdown", slog.Any("error", err))
	}

	// Background batches and webhooks drain after the listener stops.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer drainCancel()
	if err := tasks.Wait(drainCtx); err != nil {
		logr.Error("background batches did not finish", slog.Any("error", err))
	}

	logr.Info("server exiting")
}
