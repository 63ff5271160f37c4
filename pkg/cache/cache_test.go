package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type page struct {
	Items []string `json:"items"`
	Total int      `json:"total"`
}

func services(t *testing.T) map[string]Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Service{
		"redis":  NewService(client),
		"memory": NewMemoryService(time.Minute, time.Minute),
	}
}

func TestService_SetGetDelete(t *testing.T) {
	for name, svc := range services(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var got page
			assert.ErrorIs(t, svc.Get(ctx, "tripstock:calendar:a", &got), ErrCacheMiss)

			require.NoError(t, svc.Set(ctx, "tripstock:calendar:a", page{Items: []string{"x"}, Total: 1}, time.Minute))
			require.NoError(t, svc.Get(ctx, "tripstock:calendar:a", &got))
			assert.Equal(t, page{Items: []string{"x"}, Total: 1}, got)
			assert.True(t, svc.Exists(ctx, "tripstock:calendar:a"))

			require.NoError(t, svc.Delete(ctx, "tripstock:calendar:a"))
			assert.False(t, svc.Exists(ctx, "tripstock:calendar:a"))
			assert.NoError(t, svc.Ping(ctx))
		})
	}
}

func TestService_DeletePattern(t *testing.T) {
	for name, svc := range services(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, key := range []string{"tripstock:calendar:t1:a", "tripstock:calendar:t1:b", "tripstock:calendar:t2:a"} {
				require.NoError(t, svc.Set(ctx, key, 1, time.Minute))
			}

			require.NoError(t, svc.DeletePattern(ctx, "tripstock:calendar:t1:*"))

			assert.False(t, svc.Exists(ctx, "tripstock:calendar:t1:a"))
			assert.False(t, svc.Exists(ctx, "tripstock:calendar:t1:b"))
			assert.True(t, svc.Exists(ctx, "tripstock:calendar:t2:a"))
		})
	}
}

func TestService_GetOrSet(t *testing.T) {
	for name, svc := range services(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			calls := 0
			fetch := func() (interface{}, error) {
				calls++
				return page{Total: 7}, nil
			}

			var first, second page
			require.NoError(t, svc.GetOrSet(ctx, "k", time.Minute, fetch, &first))
			require.NoError(t, svc.GetOrSet(ctx, "k", time.Minute, fetch, &second))
			assert.Equal(t, 7, first.Total)
			assert.Equal(t, first, second)
			assert.Equal(t, 1, calls)

			boom := errors.New("boom")
			var out page
			err := svc.GetOrSet(ctx, "other", time.Minute, func() (interface{}, error) { return nil, boom }, &out)
			assert.ErrorIs(t, err, boom)
		})
	}
}
