package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"tripstock/pkg/logger"

	gocache "github.com/patrickmn/go-cache"
)

type memoryService struct {
	store *gocache.Cache
	log   *logger.Logger
}

// NewMemoryService returns an in-process cache used when Redis is not configured.
// Values are stored JSON encoded so callers observe the same copy semantics as Redis.
func NewMemoryService(defaultTTL, cleanupInterval time.Duration) Service {
	return &memoryService{
		store: gocache.New(defaultTTL, cleanupInterval),
		log:   logger.GetDefault(),
	}
}

func (m *memoryService) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.store.Get(key)
	if !ok {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(raw.([]byte), dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

func (m *memoryService) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	m.store.Set(key, data, ttl)
	return nil
}

func (m *memoryService) Delete(_ context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

// DeletePattern supports the glob syntax of path.Match, which covers the
// prefix:* patterns used with Redis.
func (m *memoryService) DeletePattern(_ context.Context, pattern string) error {
	for key := range m.store.Items() {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return fmt.Errorf("cache pattern error: %w", err)
		}
		if matched {
			m.store.Delete(key)
		}
	}
	return nil
}

func (m *memoryService) Exists(_ context.Context, key string) bool {
	_, ok := m.store.Get(key)
	return ok
}

func (m *memoryService) GetOrSet(ctx context.Context, key string, ttl time.Duration, fetcher func() (interface{}, error), dest interface{}) error {
	return getOrSet(ctx, m, m.log, key, ttl, fetcher, dest)
}

func (m *memoryService) Ping(context.Context) error {
	return nil
}
