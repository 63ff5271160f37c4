package ratelimit

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type RateLimitType string

const (
	RateLimitTypeDefault RateLimitType = "default"
	RateLimitTypePublic  RateLimitType = "public"
	RateLimitTypeHold    RateLimitType = "hold"
	RateLimitTypeAdmin   RateLimitType = "admin"
	RateLimitTypeHealth  RateLimitType = "health"
)

const keyPrefix = "tripstock:ratelimit"

// Config holds the request budgets per window
type Config struct {
	Enabled         bool          `json:"enabled"`
	WindowDuration  time.Duration `json:"window_duration"`
	DefaultRequests int           `json:"default_requests"`
	PublicRequests  int           `json:"public_requests"`
	HoldRequests    int           `json:"hold_requests"`
	AdminRequests   int           `json:"admin_requests"`
	HealthRequests  int           `json:"health_requests"`
	WhitelistedIPs  []string      `json:"whitelisted_ips"`
}

// Result represents rate limit check result
type Result struct {
	Allowed   bool  `json:"allowed"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
}

// Limiter decides whether a client may make another request of a kind
type Limiter interface {
	IsAllowed(ctx context.Context, clientIP string, limitType RateLimitType) (*Result, error)
}

// sliding window over a sorted set; scores are unix milliseconds
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local window_start = tonumber(ARGV[1])
	local now = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local current_count = redis.call('ZCARD', key)
	if current_count >= limit then
		redis.call('PEXPIRE', key, window_ms)
		return {0, 0}
	end

	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, window_ms)
	return {1, limit - current_count - 1}
`)

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	client *redis.Client
	config *Config
}

func NewRateLimiter(client *redis.Client, config *Config) *RateLimiter {
	return &RateLimiter{
		client: client,
		config: config,
	}
}

// IsAllowed checks if request is allowed
func (r *RateLimiter) IsAllowed(ctx context.Context, clientIP string, limitType RateLimitType) (*Result, error) {
	limit := r.config.limit(limitType)
	if limit <= 0 || r.config.bypass(clientIP) {
		return r.config.unlimited(limit), nil
	}

	key := fmt.Sprintf("%s:%s:%s", keyPrefix, clientIP, limitType)
	return r.checkLimit(ctx, key, limit)
}

func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int) (*Result, error) {
	now := time.Now()
	windowStart := now.Add(-r.config.WindowDuration)

	raw, err := slidingWindowScript.Run(ctx, r.client, []string{key},
		windowStart.UnixMilli(),
		now.UnixMilli(),
		limit,
		r.config.WindowDuration.Milliseconds(),
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis eval failed: %w", err)
	}
	if len(raw) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	return &Result{
		Allowed:   raw[0] == 1,
		Limit:     limit,
		Remaining: int(raw[1]),
		ResetTime: now.Add(r.config.WindowDuration).Unix(),
	}, nil
}

// LocalRateLimiter is the in-process token bucket used when Redis is off.
// Budgets are per instance.
type LocalRateLimiter struct {
	config   *Config
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewLocalRateLimiter(config *Config) *LocalRateLimiter {
	return &LocalRateLimiter{
		config:   config,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *LocalRateLimiter) IsAllowed(_ context.Context, clientIP string, limitType RateLimitType) (*Result, error) {
	limit := l.config.limit(limitType)
	if limit <= 0 || l.config.bypass(clientIP) {
		return l.config.unlimited(limit), nil
	}

	limiter := l.limiter(clientIP+":"+string(limitType), limit)
	now := time.Now()
	allowed := limiter.AllowN(now, 1)
	remaining := int(limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return &Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetTime: now.Add(l.config.WindowDuration).Unix(),
	}, nil
}

func (l *LocalRateLimiter) limiter(key string, limit int) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(l.config.WindowDuration/time.Duration(limit)), limit)
		l.limiters[key] = limiter
	}
	return limiter
}

func (c *Config) limit(limitType RateLimitType) int {
	switch limitType {
	case RateLimitTypePublic:
		return c.PublicRequests
	case RateLimitTypeHold:
		return c.HoldRequests
	case RateLimitTypeAdmin:
		return c.AdminRequests
	case RateLimitTypeHealth:
		return c.HealthRequests
	default:
		return c.DefaultRequests
	}
}

func (c *Config) bypass(ip string) bool {
	return !c.Enabled || slices.Contains(c.WhitelistedIPs, ip)
}

func (c *Config) unlimited(limit int) *Result {
	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit,
		ResetTime: time.Now().Add(c.WindowDuration).Unix(),
	}
}
