package holds

import (
	"context"
	"sync"
	"time"

	"tripstock/pkg/logger"
)

// TimeSweeper persists time-driven status transitions
type TimeSweeper interface {
	SweepTimeTransitions(ctx context.Context) (int, error)
}

// Promoter retries waitlist promotion for every queue with waiting entries
type Promoter interface {
	PromotePending(ctx context.Context) (int, error)
}

// JobProcessor runs the expired hold reclaimer, the status time sweep and
// the waitlist promotion pass
type JobProcessor struct {
	service  Service
	sweeper  TimeSweeper
	promoter Promoter
	config   *JobConfig
	log     *logger.Logger
	done    chan struct{}
	stop    sync.Once
	wg      sync.WaitGroup
}

// JobConfig contains configuration for background jobs
type JobConfig struct {
	ReclaimInterval    time.Duration
	TransitionInterval time.Duration
	PromotionInterval  time.Duration
	BatchSize          int
}

// DefaultJobConfig returns default job configuration
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		ReclaimInterval:    30 * time.Second,
		TransitionInterval: 1 * time.Minute,
		PromotionInterval:  1 * time.Minute,
		BatchSize:          200,
	}
}

// NewJobProcessor creates a new job processor. sweeper and promoter may be nil.
func NewJobProcessor(service Service, sweeper TimeSweeper, promoter Promoter, config *JobConfig) *JobProcessor {
	if config == nil {
		config = DefaultJobConfig()
	}

	return &JobProcessor{
		service:  service,
		sweeper:  sweeper,
		promoter: promoter,
		config:   config,
		log:      logger.GetDefault(),
		done:     make(chan struct{}),
	}
}

// Start starts all background jobs
func (jp *JobProcessor) Start(ctx context.Context) {
	jp.log.Info("starting inventory background jobs",
		"reclaim_interval", jp.config.ReclaimInterval.String(),
		"transition_interval", jp.config.TransitionInterval.String(),
		"promotion_interval", jp.config.PromotionInterval.String())

	jp.wg.Add(1)
	go jp.every(ctx, jp.config.ReclaimInterval, jp.RunReclaim)

	if jp.sweeper != nil {
		jp.wg.Add(1)
		go jp.every(ctx, jp.config.TransitionInterval, jp.RunTransitions)
	}

	if jp.promoter != nil && jp.config.PromotionInterval > 0 {
		jp.wg.Add(1)
		go jp.every(ctx, jp.config.PromotionInterval, jp.RunPromotion)
	}
}

// Stop stops all background jobs and waits for the running pass to finish
func (jp *JobProcessor) Stop() {
	jp.stop.Do(func() {
		close(jp.done)
	})
	jp.wg.Wait()
	jp.log.Info("inventory background jobs stopped")
}

func (jp *JobProcessor) every(ctx context.Context, interval time.Duration, run func(context.Context)) {
	defer jp.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			run(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunReclaim releases one batch of expired holds
func (jp *JobProcessor) RunReclaim(ctx context.Context) {
	reclaimed, err := jp.service.ReclaimExpired(ctx, jp.config.BatchSize)
	if err != nil {
		jp.log.ErrorWithContext(ctx, "expired hold reclaim failed", err, nil)
		return
	}

	if reclaimed > 0 {
		jp.log.InfoWithContext(ctx, "reclaimed expired holds", map[string]interface{}{"count": reclaimed})
	}
}

// RunTransitions persists cutoff, departure and sale-opening transitions
func (jp *JobProcessor) RunTransitions(ctx context.Context) {
	changed, err := jp.sweeper.SweepTimeTransitions(ctx)
	if err != nil {
		jp.log.ErrorWithContext(ctx, "status time sweep failed", err, nil)
		return
	}

	if changed > 0 {
		jp.log.InfoWithContext(ctx, "applied time transitions", map[string]interface{}{"count": changed})
	}
}

// RunPromotion promotes waiting entries whose release trigger was missed
func (jp *JobProcessor) RunPromotion(ctx context.Context) {
	promoted, err := jp.promoter.PromotePending(ctx)
	if err != nil {
		jp.log.ErrorWithContext(ctx, "waitlist promotion pass failed", err, nil)
		return
	}

	if promoted > 0 {
		jp.log.InfoWithContext(ctx, "promoted waitlist entries", map[string]interface{}{"count": promoted})
	}
}

// GetJobStatus returns the status of background jobs
func (jp *JobProcessor) GetJobStatus() map[string]interface{} {
	return map[string]interface{}{
		"reclaim_interval":    jp.config.ReclaimInterval.String(),
		"transition_interval": jp.config.TransitionInterval.String(),
		"promotion_interval":  jp.config.PromotionInterval.String(),
		"batch_size":          jp.config.BatchSize,
		"status":              "running",
	}
}
