package holds

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tripstock/internal/capacity"
	"tripstock/internal/publisher"
	"tripstock/pkg/cache"
	"tripstock/pkg/clock"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&capacity.Capacity{}, &Hold{}))
	return db
}

type fixture struct {
	db          *gorm.DB
	capacities  capacity.Repository
	capacitySvc capacity.Service
	repo        Repository
	svc         Service
	clock       *clock.Fake
	publisher   *publisher.Recorder
	tenantID    uuid.UUID
}

func testConfig() *ServiceConfig {
	cfg := DefaultServiceConfig()
	cfg.Retry = capacity.RetryPolicy{Attempts: 5, BaseDelay: time.Millisecond}
	return cfg
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, nil, testConfig())
}

// newFixtureWith lets a test wrap the capacity repository used by the hold manager.
func newFixtureWith(t *testing.T, wrap func(capacity.Repository) capacity.Repository, cfg *ServiceConfig) *fixture {
	t.Helper()

	db := newTestDB(t)
	clk := clock.NewFake(time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC))
	rec := &publisher.Recorder{}
	capacities := capacity.NewRepository(db)
	capacitySvc := capacity.NewService(db, capacities, cache.NewMemoryService(time.Minute, time.Minute), rec, clk, nil)

	managed := capacities
	if wrap != nil {
		managed = wrap(capacities)
	}
	repo := NewRepository(db)

	return &fixture{
		db:          db,
		capacities:  capacities,
		capacitySvc: capacitySvc,
		repo:        repo,
		svc:         NewService(db, repo, managed, capacitySvc, rec, clk, cfg),
		clock:       clk,
		publisher:   rec,
		tenantID:    uuid.New(),
	}
}

// capacity creates an open record departing a week from now at 09:00.
func (f *fixture) capacity(t *testing.T, total, blocked, overbooking int, mutate ...func(*capacity.CreateInput)) capacity.Capacity {
	t.Helper()

	in := capacity.CreateInput{
		TenantID:         f.tenantID,
		ResourceID:       uuid.New(),
		SaleDate:         f.clock.Now().AddDate(0, 0, 7),
		TimeOfDay:        "09:00",
		TotalCapacity:    total,
		BlockedSeats:     blocked,
		OverbookingLimit: overbooking,
	}
	for _, m := range mutate {
		m(&in)
	}

	created, err := f.capacitySvc.Create(context.Background(), in)
	require.NoError(t, err)
	return created.Capacity
}

func (f *fixture) cart(capacityID uuid.UUID, seats int) AcquireInput {
	return AcquireInput{
		TenantID:   f.tenantID,
		CapacityID: capacityID,
		SeatCount:  seats,
		HoldType:   HoldTypeCart,
		Source:     SourceWebsite,
	}
}

func (f *fixture) stored(t *testing.T, id uuid.UUID) capacity.Capacity {
	t.Helper()
	c, err := f.capacities.GetByID(context.Background(), id)
	require.NoError(t, err)
	return *c
}

// conflictingRepository fails the first n version-checked writes.
type conflictingRepository struct {
	capacity.Repository
	mu        *sync.Mutex
	remaining *int
}

func conflicting(n int) func(capacity.Repository) capacity.Repository {
	remaining := n
	mu := &sync.Mutex{}
	return func(r capacity.Repository) capacity.Repository {
		return &conflictingRepository{Repository: r, mu: mu, remaining: &remaining}
	}
}

func (r *conflictingRepository) WithTx(tx *gorm.DB) capacity.Repository {
	return &conflictingRepository{Repository: r.Repository.WithTx(tx), mu: r.mu, remaining: r.remaining}
}

func (r *conflictingRepository) UpdateWithVersion(ctx context.Context, c *capacity.Capacity) error {
	r.mu.Lock()
	if *r.remaining > 0 {
		*r.remaining--
		r.mu.Unlock()
		return capacity.ErrVersionConflict
	}
	r.mu.Unlock()
	return r.Repository.UpdateWithVersion(ctx, c)
}

// staleRepository hands out one armed snapshot, as a reader that raced a commit would see it.
type staleRepository struct {
	capacity.Repository
	state *staleState
}

type staleState struct {
	mu        sync.Mutex
	record    *capacity.Capacity
	heldSeats *int
	conflicts int
}

func (s *staleState) arm(c capacity.Capacity, heldSeats int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = &c
	s.heldSeats = &heldSeats
}

func (r *staleRepository) WithTx(tx *gorm.DB) capacity.Repository {
	return &staleRepository{Repository: r.Repository.WithTx(tx), state: r.state}
}

func (r *staleRepository) GetByID(ctx context.Context, id uuid.UUID) (*capacity.Capacity, error) {
	r.state.mu.Lock()
	if c := r.state.record; c != nil && c.ID == id {
		r.state.record = nil
		r.state.mu.Unlock()
		return c, nil
	}
	r.state.mu.Unlock()
	return r.Repository.GetByID(ctx, id)
}

func (r *staleRepository) SumActiveHoldSeats(ctx context.Context, ids []uuid.UUID, now time.Time) (map[uuid.UUID]int, error) {
	r.state.mu.Lock()
	if held := r.state.heldSeats; held != nil && len(ids) == 1 {
		r.state.heldSeats = nil
		r.state.mu.Unlock()
		return map[uuid.UUID]int{ids[0]: *held}, nil
	}
	r.state.mu.Unlock()
	return r.Repository.SumActiveHoldSeats(ctx, ids, now)
}

func (r *staleRepository) UpdateWithVersion(ctx context.Context, c *capacity.Capacity) error {
	err := r.Repository.UpdateWithVersion(ctx, c)
	if errors.Is(err, capacity.ErrVersionConflict) {
		r.state.mu.Lock()
		r.state.conflicts++
		r.state.mu.Unlock()
	}
	return err
}

type seatListenerFunc func(capacityID uuid.UUID)

func (fn seatListenerFunc) SeatsFreed(_ context.Context, capacityID uuid.UUID) {
	fn(capacityID)
}
