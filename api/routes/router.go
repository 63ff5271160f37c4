// api/routes/router.go
package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	_ "tripstock/api/docs"
	"tripstock/internal/capacity"
	"tripstock/internal/holds"
	"tripstock/internal/publisher"
	"tripstock/internal/seatblocks"
	"tripstock/internal/shared/config"
	"tripstock/internal/shared/database"
	"tripstock/internal/waitlist"
	"tripstock/pkg/cache"
	"tripstock/pkg/clock"
	"tripstock/pkg/logger"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router holds all route dependencies
type Router struct {
	config *config.Config
	db     *database.DB

	capacityService  capacity.Service
	holdService      holds.Service
	waitlistService  waitlist.Service
	seatBlockService seatblocks.Service
}

// NewRouter builds the inventory services on top of db. pub may be nil.
func NewRouter(cfg *config.Config, db *database.DB, pub publisher.Publisher) (*Router, error) {
	log := logger.GetDefault()
	clk := clock.System()
	if pub == nil {
		pub = publisher.Noop{}
	}

	// Redis when configured, otherwise per-instance fallbacks
	var (
		cacheSvc cache.Service
		locker   waitlist.Locker
	)
	if db.Redis != nil {
		cacheSvc = cache.NewService(db.Redis)
		redisLocker := waitlist.NewRedisLocker(db.Redis, cfg.Inventory.PromotionLockTTL, cfg.Inventory.PromotionLockTTL)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisLocker.PreloadScripts(ctx); err != nil {
			log.Warn("failed to preload waitlist lock script", "error", err)
		}
		cancel()
		locker = redisLocker
	} else {
		cacheSvc = cache.NewMemoryService(cfg.Redis.CacheTTL, 2*cfg.Redis.CacheTTL)
		locker = waitlist.NewLocalLocker()
	}

	ttls, err := holds.NewTTLTable(cfg.Inventory.HoldTTLs)
	if err != nil {
		return nil, fmt.Errorf("invalid hold TTLs: %w", err)
	}
	retry := capacity.RetryPolicy{
		Attempts:  cfg.Inventory.RetryAttempts,
		BaseDelay: cfg.Inventory.RetryBaseDelay,
		Deadline:  cfg.Inventory.RetryDeadline,
	}

	capacityRepo := capacity.NewRepository(db.PostgreSQL)
	capacityService := capacity.NewService(db.PostgreSQL, capacityRepo, cacheSvc, pub, clk, &capacity.ServiceConfig{
		CalendarCacheTTL: cfg.Inventory.CalendarCacheTTL,
		FewLeftRatio:     cfg.Inventory.FewLeftRatio,
		Retry:            retry,
		SweepLimit:       capacity.DefaultServiceConfig().SweepLimit,
	})

	holdService := holds.NewService(db.PostgreSQL, holds.NewRepository(db.PostgreSQL), capacityRepo, capacityService, pub, clk, &holds.ServiceConfig{
		TTLs:         ttls,
		Retry:        retry,
		ReclaimBatch: cfg.Inventory.SweepBatchSize,
	})

	waitlistService := waitlist.NewService(waitlist.NewRepository(db.PostgreSQL), capacityService, holdService, locker, pub, clk, nil)

	// freed seats go to the queue first
	capacityService.AddSeatListener(waitlistService)
	holdService.AddSeatListener(waitlistService)

	return &Router{
		config:           cfg,
		db:               db,
		capacityService:  capacityService,
		holdService:      holdService,
		waitlistService:  waitlistService,
		seatBlockService: seatblocks.NewService(holdService),
	}, nil
}

// JobProcessor returns the background reclaimer, status sweeper and waitlist promoter
func (r *Router) JobProcessor() *holds.JobProcessor {
	return holds.NewJobProcessor(r.holdService, r.capacityService, r.waitlistService, &holds.JobConfig{
		ReclaimInterval:    r.config.Inventory.SweepInterval,
		TransitionInterval: r.config.Inventory.TransitionInterval,
		PromotionInterval:  r.config.Inventory.PromotionInterval,
		BatchSize:          r.config.Inventory.SweepBatchSize,
	})
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		capacity.SetupCapacityRoutes(api, capacity.NewController(r.capacityService))
		holds.SetupHoldRoutes(api, holds.NewController(r.holdService, r.capacityService))
		seatblocks.SetupSeatBlockRoutes(api, seatblocks.NewController(r.seatBlockService, r.capacityService))
		waitlist.SetupWaitlistRoutes(api, waitlist.NewController(r.waitlistService, r.capacityService))
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "tripstock",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "tripstock",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})
}
