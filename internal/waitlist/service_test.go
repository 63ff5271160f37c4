package waitlist

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tripstock/internal/capacity"
	"tripstock/internal/holds"
	"tripstock/internal/publisher"
	"tripstock/internal/shared/errs"
	"tripstock/pkg/clock"
)

type fixture struct {
	capacitySvc capacity.Service
	holdSvc     holds.Service
	svc         Service
	clock       *clock.Fake
	publisher   *publisher.Recorder
	locker      *busyLocker
	tenantID    uuid.UUID
}

// busyLocker fails the next n acquisitions with ErrLockBusy
type busyLocker struct {
	Locker
	n atomic.Int32
}

func (l *busyLocker) Lock(ctx context.Context, key string) (UnlockFunc, error) {
	if l.n.Add(-1) >= 0 {
		return nil, ErrLockBusy
	}
	l.n.Store(0)
	return l.Locker.Lock(ctx, key)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&capacity.Capacity{}, &holds.Hold{}, &Entry{}))

	clk := clock.NewFake(time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC))
	rec := &publisher.Recorder{}
	capacities := capacity.NewRepository(db)
	capacitySvc := capacity.NewService(db, capacities, nil, rec, clk, nil)
	holdSvc := holds.NewService(db, holds.NewRepository(db), capacities, capacitySvc, rec, clk, nil)
	locker := &busyLocker{Locker: NewLocalLocker()}
	svc := NewService(NewRepository(db), capacitySvc, holdSvc, locker, rec, clk, nil)
	capacitySvc.AddSeatListener(svc)
	holdSvc.AddSeatListener(svc)

	return &fixture{
		capacitySvc: capacitySvc,
		holdSvc:     holdSvc,
		svc:         svc,
		clock:       clk,
		publisher:   rec,
		locker:      locker,
		tenantID:    uuid.New(),
	}
}

func (f *fixture) capacity(t *testing.T, total int, waitlist bool) capacity.Capacity {
	t.Helper()
	created, err := f.capacitySvc.Create(context.Background(), capacity.CreateInput{
		TenantID:        f.tenantID,
		ResourceID:      uuid.New(),
		SaleDate:        f.clock.Now().AddDate(0, 0, 10),
		TotalCapacity:   total,
		WaitlistEnabled: waitlist,
	})
	require.NoError(t, err)
	return created.Capacity
}

func (f *fixture) hold(t *testing.T, capacityID uuid.UUID, seats int) holds.Hold {
	t.Helper()
	res, err := f.holdSvc.AcquireHold(context.Background(), holds.AcquireInput{
		TenantID:   f.tenantID,
		CapacityID: capacityID,
		SeatCount:  seats,
		HoldType:   holds.HoldTypeCart,
		Source:     holds.SourceWebsite,
	})
	require.NoError(t, err)
	return res.Hold
}

func (f *fixture) join(capacityID uuid.UUID, quantity int) (*EntryView, error) {
	return f.svc.Join(context.Background(), JoinInput{
		TenantID:   f.tenantID,
		CapacityID: capacityID,
		Quantity:   quantity,
		Source:     holds.SourceWebsite,
	})
}

func TestJoin_OnlyWhenSoldOut(t *testing.T) {
	f := newFixture(t)
	c := f.capacity(t, 4, true)

	_, err := f.join(c.ID, 2)
	assert.ErrorIs(t, err, errs.ErrValidation)

	// more than bookable may queue right away
	view, err := f.join(c.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.Position)

	noWaitlist := f.capacity(t, 4, false)
	f.hold(t, noWaitlist.ID, 4)
	_, err = f.join(noWaitlist.ID, 1)
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.svc.Join(context.Background(), JoinInput{
		TenantID: uuid.New(), CapacityID: c.ID, Quantity: 5, Source: holds.SourceWebsite,
	})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestJoin_AssignsFIFOPositions(t *testing.T) {
	f := newFixture(t)
	c := f.capacity(t, 4, true)
	f.hold(t, c.ID, 4)

	first, err := f.join(c.ID, 2)
	require.NoError(t, err)
	second, err := f.join(c.ID, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Position)
	assert.Equal(t, int64(2), second.Position)
	assert.Less(t, first.Entry.Seq, second.Entry.Seq)

	_, err = f.svc.Leave(context.Background(), first.Entry.ID)
	require.NoError(t, err)

	view, err := f.svc.Get(context.Background(), second.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.Position)
}

func TestRelease_PromotesWaitingEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.capacity(t, 4, true)
	h := f.hold(t, c.ID, 4)

	first, err := f.join(c.ID, 2)
	require.NoError(t, err)
	second, err := f.join(c.ID, 1)
	require.NoError(t, err)

	_, err = f.holdSvc.ReleaseHold(ctx, h.ID, holds.ReasonCancelled)
	require.NoError(t, err)

	for _, id := range []uuid.UUID{first.Entry.ID, second.Entry.ID} {
		view, err := f.svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StatusPromoted, view.Entry.Status)
		require.NotNil(t, view.Entry.HoldID)

		promotedHold, err := f.holdSvc.GetHold(ctx, *view.Entry.HoldID)
		require.NoError(t, err)
		assert.Equal(t, holds.SourceWaitlist, promotedHold.Source)
		assert.Equal(t, holds.HoldTypePaymentPending, promotedHold.HoldType)
		assert.Equal(t, view.Entry.Quantity, promotedHold.SeatCount)
	}
	assert.Len(t, f.publisher.OfType(publisher.EventWaitlistPromoted), 2)

	quote, err := f.holdSvc.CheckAvailability(ctx, c.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, quote.AvailableSeats)
}

func TestPromotePending_RecoversMissedTrigger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.capacity(t, 2, true)
	h := f.hold(t, c.ID, 2)

	entry, err := f.join(c.ID, 2)
	require.NoError(t, err)

	// the release's own promotion loses the lock race
	f.locker.n.Store(1)
	_, err = f.holdSvc.ReleaseHold(ctx, h.ID, holds.ReasonCancelled)
	require.NoError(t, err)

	view, err := f.svc.Get(ctx, entry.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, view.Entry.Status)

	promoted, err := f.svc.PromotePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	view, err = f.svc.Get(ctx, entry.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPromoted, view.Entry.Status)
	require.NotNil(t, view.Entry.HoldID)

	again, err := f.svc.PromotePending(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestPromotePending_SkipsBusyQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.capacity(t, 2, true)
	h := f.hold(t, c.ID, 2)

	entry, err := f.join(c.ID, 1)
	require.NoError(t, err)

	f.locker.n.Store(1)
	_, err = f.holdSvc.ReleaseHold(ctx, h.ID, holds.ReasonCancelled)
	require.NoError(t, err)

	f.locker.n.Store(1)
	promoted, err := f.svc.PromotePending(ctx)
	require.NoError(t, err)
	assert.Zero(t, promoted)

	promoted, err = f.svc.PromotePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	view, err := f.svc.Get(ctx, entry.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPromoted, view.Entry.Status)
}

func TestPromote_IsStrictFIFO(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.capacity(t, 4, true)
	big := f.hold(t, c.ID, 3)
	small := f.hold(t, c.ID, 1)

	first, err := f.join(c.ID, 3)
	require.NoError(t, err)
	second, err := f.join(c.ID, 1)
	require.NoError(t, err)

	// one seat frees up: the head needs three, so nobody behind it jumps the queue
	_, err = f.holdSvc.ReleaseHold(ctx, small.ID, holds.ReasonCancelled)
	require.NoError(t, err)

	waiting := StatusWaiting
	entries, err := f.svc.List(ctx, c.ID, &waiting)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = f.holdSvc.ReleaseHold(ctx, big.ID, holds.ReasonCancelled)
	require.NoError(t, err)

	for _, id := range []uuid.UUID{first.Entry.ID, second.Entry.ID} {
		view, err := f.svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StatusPromoted, view.Entry.Status)
		assert.Equal(t, int64(0), view.Position)
	}
}

func TestPromote_ExpiresQueueOfClosedRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.capacity(t, 2, true)
	f.hold(t, c.ID, 2)

	entry, err := f.join(c.ID, 1)
	require.NoError(t, err)

	_, err = f.capacitySvc.Cancel(ctx, c.ID)
	require.NoError(t, err)

	promoted, err := f.svc.Promote(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, promoted)

	view, err := f.svc.Get(ctx, entry.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, view.Entry.Status)
}

func TestLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.capacity(t, 2, true)
	f.hold(t, c.ID, 2)

	entry, err := f.join(c.ID, 1)
	require.NoError(t, err)

	left, err := f.svc.Leave(ctx, entry.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, left.Status)

	again, err := f.svc.Leave(ctx, entry.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, again.Status)

	_, err = f.svc.Leave(ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestLeave_PromotedEntryKeepsItsHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.capacity(t, 2, true)
	h := f.hold(t, c.ID, 2)

	entry, err := f.join(c.ID, 1)
	require.NoError(t, err)
	_, err = f.holdSvc.ReleaseHold(ctx, h.ID, holds.ReasonCancelled)
	require.NoError(t, err)

	_, err = f.svc.Leave(ctx, entry.Entry.ID)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, StatusWaiting.CanTransitionTo(StatusPromoted))
	assert.True(t, StatusWaiting.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusWaiting.CanTransitionTo(StatusExpired))
	assert.False(t, StatusPromoted.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusWaiting))
	assert.False(t, Status("LOST").IsValid())
}
