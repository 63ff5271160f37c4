package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripstock/api/routes"
	"tripstock/internal/publisher"
	"tripstock/internal/shared/config"
	"tripstock/internal/shared/database"
	"tripstock/internal/shared/middleware"
	"tripstock/pkg/logger"
	"tripstock/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load environment variables
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		// Check if we're in production/container mode
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	// Load config
	cfg := config.Load()

	// Set Gin mode (debug/release)
	gin.SetMode(cfg.GinMode)

	// Hold TTL overrides are part of the config; a broken file stops startup
	if err := cfg.LoadHoldTTLs(); err != nil {
		appLogger.Error("failed to load hold TTLs", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize DB
	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect:", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize Rate Limiter
	var rateLimiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		rateLimiterConfig := &ratelimit.Config{
			Enabled:         cfg.RateLimit.Enabled,
			WindowDuration:  cfg.RateLimit.WindowDuration,
			DefaultRequests: cfg.RateLimit.DefaultRequests,
			PublicRequests:  cfg.RateLimit.PublicRequests,
			HoldRequests:    cfg.RateLimit.HoldRequests,
			AdminRequests:   cfg.RateLimit.AdminRequests,
			HealthRequests:  cfg.RateLimit.HealthRequests,
			WhitelistedIPs:  cfg.RateLimit.WhitelistedIPs,
		}

		if db.Redis != nil {
			rateLimiter = ratelimit.NewRateLimiter(db.Redis, rateLimiterConfig)
		} else {
			rateLimiter = ratelimit.NewLocalRateLimiter(rateLimiterConfig)
		}
		appLogger.Info("Rate limiter initialized",
			slog.Bool("enabled", cfg.RateLimit.Enabled),
			slog.Bool("distributed", db.Redis != nil),
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Inventory event stream
	var pub publisher.Publisher = publisher.Noop{}
	if cfg.Kafka.Enabled {
		kafkaConfig := publisher.DefaultKafkaConfig()
		kafkaConfig.Brokers = cfg.Kafka.Brokers
		kafkaConfig.Topic = cfg.Kafka.Topic

		kafkaPublisher, err := publisher.NewKafkaPublisher(kafkaConfig)
		if err != nil {
			appLogger.Error("Failed to initialize Kafka publisher", slog.Any("error", err))
			appLogger.Info("Continuing without inventory events")
		} else {
			pub = kafkaPublisher
			appLogger.Info("Kafka publisher initialized", slog.String("topic", cfg.Kafka.Topic))
		}
	}
	defer func() {
		if err := pub.Close(); err != nil {
			appLogger.Error("Error closing publisher", slog.Any("error", err))
		}
	}()

	appRouter, err := routes.NewRouter(cfg, db, pub)
	if err != nil {
		appLogger.Error("failed to build services", slog.Any("error", err))
		os.Exit(1)
	}

	// Expired hold reclaimer and status sweep
	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()
	jobs := appRouter.JobProcessor()
	jobs.Start(jobCtx)
	defer jobs.Stop()

	router := setupRouter(appRouter, appLogger, rateLimiter)

	// HTTP server
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("🚀 Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("swagger", fmt.Sprintf("http://localhost:%s/swagger/index.html", cfg.Port)),
			slog.String("version", cfg.APIVersion),
			slog.Bool("redis_cache", (db.Redis != nil)),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func setupRouter(appRouter *routes.Router, appLogger *logger.Logger, rateLimiter ratelimit.Limiter) *gin.Engine {
	engine := gin.New()

	// Built-in middleware: logs requests + recovers from panics
	engine.Use(RequestLoggerMiddleware(appLogger), gin.Recovery())

	// CORS configuration
	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true // allow every origin dynamically
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Tenant-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Global rate limiting middleware (applied to all routes)
	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	appRouter.SetupRoutes(engine)

	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		reqLog := l
		if tenantID := middleware.TenantID(c); tenantID != uuid.Nil {
			reqLog = l.WithTenant(tenantID.String())
		}
		reqLog.LogHTTPRequest(c, duration)
	}
}
