package capacity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tripstock/internal/publisher"
	"tripstock/pkg/cache"
	"tripstock/pkg/clock"
)

// newTestDB opens an isolated in-memory sqlite database with a single
// connection so transactions serialize the way row versions do in postgres.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&Capacity{}))
	// minimal shape of the holds table read by SumActiveHoldSeats
	require.NoError(t, db.Exec(`CREATE TABLE holds (
		id TEXT PRIMARY KEY,
		capacity_id TEXT NOT NULL,
		seat_count INTEGER NOT NULL,
		expires_at DATETIME NOT NULL,
		released_at DATETIME
	)`).Error)
	return db
}

type fixture struct {
	db        *gorm.DB
	repo      Repository
	svc       Service
	clock     *clock.Fake
	cache     cache.Service
	publisher *publisher.Recorder
	tenantID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	clk := clock.NewFake(time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC))
	repo := NewRepository(db)
	mem := cache.NewMemoryService(time.Minute, time.Minute)
	rec := &publisher.Recorder{}

	return &fixture{
		db:        db,
		repo:      repo,
		svc:       NewService(db, repo, mem, rec, clk, nil),
		clock:     clk,
		cache:     mem,
		publisher: rec,
		tenantID:  uuid.New(),
	}
}

func (f *fixture) input(total, blocked, overbooking int) CreateInput {
	return CreateInput{
		TenantID:         f.tenantID,
		ResourceID:       uuid.New(),
		SaleDate:         f.clock.Now().AddDate(0, 0, 7),
		TimeOfDay:        "09:00",
		TotalCapacity:    total,
		BlockedSeats:     blocked,
		OverbookingLimit: overbooking,
	}
}

func (f *fixture) hold(t *testing.T, capacityID uuid.UUID, seats int, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, f.db.Exec(
		"INSERT INTO holds (id, capacity_id, seat_count, expires_at) VALUES (?, ?, ?, ?)",
		uuid.NewString(), capacityID, seats, expiresAt,
	).Error)
}

type seatListenerFunc func(capacityID uuid.UUID)

func (fn seatListenerFunc) SeatsFreed(_ context.Context, capacityID uuid.UUID) {
	fn(capacityID)
}
