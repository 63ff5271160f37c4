package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		Enabled:         true,
		WindowDuration:  time.Minute,
		DefaultRequests: 5,
		PublicRequests:  5,
		HoldRequests:    2,
		AdminRequests:   5,
		HealthRequests:  0,
		WhitelistedIPs:  []string{"10.0.0.1"},
	}
}

func newRedisLimiter(t *testing.T, cfg *Config) *RateLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRateLimiter(client, cfg)
}

func TestLimiters_EnforceBudget(t *testing.T) {
	limiters := map[string]Limiter{
		"redis": newRedisLimiter(t, testConfig()),
		"local": NewLocalRateLimiter(testConfig()),
	}

	for name, limiter := range limiters {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, err := limiter.IsAllowed(ctx, "192.0.2.1", RateLimitTypeHold)
			require.NoError(t, err)
			assert.True(t, first.Allowed)
			assert.Equal(t, 2, first.Limit)
			assert.Equal(t, 1, first.Remaining)

			second, err := limiter.IsAllowed(ctx, "192.0.2.1", RateLimitTypeHold)
			require.NoError(t, err)
			assert.True(t, second.Allowed)
			assert.Equal(t, 0, second.Remaining)

			third, err := limiter.IsAllowed(ctx, "192.0.2.1", RateLimitTypeHold)
			require.NoError(t, err)
			assert.False(t, third.Allowed)

			// budgets are per client and per kind
			other, err := limiter.IsAllowed(ctx, "192.0.2.2", RateLimitTypeHold)
			require.NoError(t, err)
			assert.True(t, other.Allowed)

			public, err := limiter.IsAllowed(ctx, "192.0.2.1", RateLimitTypePublic)
			require.NoError(t, err)
			assert.True(t, public.Allowed)
		})
	}
}

func TestLimiters_Bypass(t *testing.T) {
	disabled := testConfig()
	disabled.Enabled = false

	limiters := map[string]Limiter{
		"whitelist": NewLocalRateLimiter(testConfig()),
		"disabled":  newRedisLimiter(t, disabled),
	}
	for name, limiter := range limiters {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				result, err := limiter.IsAllowed(context.Background(), "10.0.0.1", RateLimitTypeHold)
				require.NoError(t, err)
				assert.True(t, result.Allowed)
			}
		})
	}

	// a zero budget means unlimited
	result, err := NewLocalRateLimiter(testConfig()).IsAllowed(context.Background(), "192.0.2.1", RateLimitTypeHealth)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestGetRateLimitType(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   RateLimitType
	}{
		{http.MethodGet, "/health", RateLimitTypeHealth},
		{http.MethodPost, "/api/v1/admin/capacities", RateLimitTypeAdmin},
		{http.MethodPost, "/api/v1/holds", RateLimitTypeHold},
		{http.MethodGet, "/api/v1/capacities/:id/availability", RateLimitTypeHold},
		{http.MethodPost, "/api/v1/capacities/:id/waitlist", RateLimitTypeHold},
		{http.MethodGet, "/api/v1/calendar", RateLimitTypePublic},
		{http.MethodGet, "/api/v1/capacities/:id", RateLimitTypePublic},
		{http.MethodPost, "/api/v1/unknown", RateLimitTypeDefault},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, getRateLimitType(tt.method, tt.path), tt.path)
	}
}

func TestMiddleware_RejectsOverBudget(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware(NewLocalRateLimiter(testConfig())))
	router.POST("/api/v1/holds", func(c *gin.Context) { c.Status(http.StatusCreated) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/holds", nil)
		req.Header.Set("X-Forwarded-For", "198.51.100.7")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
}
