package holds

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tripstock/internal/capacity"
	"tripstock/internal/publisher"
	"tripstock/internal/shared/errs"
	"tripstock/pkg/clock"
	"tripstock/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AcquireResult is a new hold with the availability left after it
type AcquireResult struct {
	Hold                Hold              `json:"hold"`
	Availability        capacity.Snapshot `json:"availability"`
	Status              capacity.Status   `json:"status"`
	RequiresOverbooking bool              `json:"requires_overbooking"`
}

// AvailabilityResult answers whether a number of seats can be held right now
type AvailabilityResult struct {
	CapacityID          uuid.UUID         `json:"capacity_id"`
	Seats               int               `json:"seats"`
	Available           bool              `json:"available"`
	AvailableSeats      int               `json:"available_seats"`
	BookableSeats       int               `json:"bookable_seats"`
	RequiresOverbooking bool              `json:"requires_overbooking"`
	Status              capacity.Status   `json:"status"`
	Snapshot            capacity.Snapshot `json:"-"`
}

// ServiceConfig holds hold manager tuning
type ServiceConfig struct {
	TTLs         TTLTable
	Retry        capacity.RetryPolicy
	ReclaimBatch int
}

// DefaultServiceConfig returns the default hold manager configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		TTLs:         DefaultTTLTable(),
		Retry:        capacity.DefaultRetryPolicy(),
		ReclaimBatch: 200,
	}
}

// Service is the hold manager. It is the only writer of held and confirmed seats.
type Service interface {
	AcquireHold(ctx context.Context, in AcquireInput) (*AcquireResult, error)
	ConfirmHold(ctx context.Context, holdID, bookingID uuid.UUID) (*Hold, error)
	ReleaseHold(ctx context.Context, holdID uuid.UUID, reason ReleaseReason) (*Hold, error)
	CheckAvailability(ctx context.Context, capacityID uuid.UUID, seatCount int) (*AvailabilityResult, error)
	GetHold(ctx context.Context, id uuid.UUID) (*Hold, error)
	ListHolds(ctx context.Context, capacityID uuid.UUID, activeOnly bool, holdType *HoldType) ([]Hold, error)

	// ReleaseConfirmedSeats returns seats of a cancelled booking to the pool.
	ReleaseConfirmedSeats(ctx context.Context, capacityID uuid.UUID, seats int) (*capacity.CapacityWithAvailability, error)

	// ReclaimExpired releases up to batch lapsed holds and returns how many this call released.
	ReclaimExpired(ctx context.Context, batch int) (int, error)

	AddSeatListener(l capacity.SeatListener)
	Now() time.Time
}

type service struct {
	db         *gorm.DB
	repo       Repository
	capacities capacity.Repository
	capacity   capacity.Service
	publisher  publisher.Publisher
	clock      clock.Clock
	validate   *validator.Validate
	log        *logger.Logger
	config     *ServiceConfig

	mu        sync.RWMutex
	listeners []capacity.SeatListener
}

func NewService(db *gorm.DB, repo Repository, capacities capacity.Repository, capacitySvc capacity.Service, pub publisher.Publisher, clk clock.Clock, config *ServiceConfig) Service {
	if config == nil {
		config = DefaultServiceConfig()
	}
	if pub == nil {
		pub = publisher.Noop{}
	}
	if clk == nil {
		clk = clock.System()
	}
	return &service{
		db:         db,
		repo:       repo,
		capacities: capacities,
		capacity:   capacitySvc,
		publisher:  pub,
		clock:      clk,
		validate:   validator.New(),
		log:        logger.GetDefault(),
		config:     config,
	}
}

func (s *service) AddSeatListener(l capacity.SeatListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

func (s *service) Now() time.Time {
	return s.clock.Now()
}

// seatChange is the outcome of one committed capacity write
type seatChange struct {
	before capacity.Capacity
	after  capacity.Capacity
}

func (s *service) validateAcquire(in AcquireInput) error {
	if err := errs.Validate(s.validate, in); err != nil {
		return err
	}
	if !in.HoldType.IsValid() {
		return errs.Validationf("unknown hold type %q", in.HoldType)
	}
	if !in.Source.IsValid() {
		return errs.Validationf("unknown source %q", in.Source)
	}
	if in.HoldType != HoldTypeSeatBlock && (in.BlockType != nil || in.ChannelScope != nil) {
		return errs.Validationf("block_type and channel_scope only apply to seat blocks")
	}
	if in.HoldType == HoldTypeSeatBlock {
		if in.BlockType == nil || !in.BlockType.IsValid() {
			return errs.Validationf("seat blocks need a valid block_type")
		}
		if *in.BlockType == BlockTypeChannelQuota && (in.ChannelScope == nil || *in.ChannelScope == "") {
			return errs.Validationf("channel quota blocks need a channel_scope")
		}
	}
	return nil
}

// expiry picks the override, then the TTL table, then departure for seat blocks.
// An override may only shorten a hold; nothing outlives departure.
func (s *service) expiry(in AcquireInput, c capacity.Capacity, now time.Time) (time.Time, error) {
	departure := c.DepartureAt()
	if in.ExpiresAt != nil {
		expiresAt := in.ExpiresAt.UTC()
		if in.HoldType != HoldTypeSeatBlock {
			ttl, ok := s.config.TTLs.Lookup(in.HoldType)
			if !ok {
				return time.Time{}, errs.Validationf("no TTL configured for hold type %s", in.HoldType)
			}
			if expiresAt.After(now.Add(ttl)) {
				return time.Time{}, errs.Validationf("expires_at is beyond the %s lifetime of %s", in.HoldType, ttl)
			}
		}
		if expiresAt.After(departure) {
			return time.Time{}, errs.Validationf("expires_at is after departure at %s", departure.Format(time.RFC3339))
		}
		if !expiresAt.After(now) {
			return time.Time{}, errs.Validationf("hold would expire immediately")
		}
		return expiresAt, nil
	}

	if in.HoldType == HoldTypeSeatBlock {
		return departure, nil
	}
	ttl, ok := s.config.TTLs.Lookup(in.HoldType)
	if !ok {
		return time.Time{}, errs.Validationf("no TTL configured for hold type %s", in.HoldType)
	}
	expiresAt := now.Add(ttl)
	if expiresAt.After(departure) {
		expiresAt = departure
	}
	return expiresAt, nil
}

// AcquireHold reads the record and its active hold sum, checks bookable seats,
// inserts the hold and bumps the record version, all in one transaction. A lost
// version race rolls everything back and retries.
func (s *service) AcquireHold(ctx context.Context, in AcquireInput) (*AcquireResult, error) {
	if err := s.validateAcquire(in); err != nil {
		return nil, err
	}

	var (
		result AcquireResult
		change seatChange
	)
	err := s.config.Retry.Run(ctx, func(attempt int) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			capacities := s.capacities.WithTx(tx)
			c, err := capacities.GetByID(ctx, in.CapacityID)
			if err != nil {
				return err
			}
			if in.TenantID != uuid.Nil && c.TenantID != in.TenantID {
				return errs.NotFoundf("capacity %s", in.CapacityID)
			}

			now := s.clock.Now()
			sums, err := capacities.SumActiveHoldSeats(ctx, []uuid.UUID{c.ID}, now)
			if err != nil {
				return err
			}
			snap, status := s.capacity.Evaluate(*c, sums[c.ID], now)
			if status.IsSaleClosed() {
				return fmt.Errorf("%w: capacity is %s", ErrSaleClosed, status)
			}
			if status == capacity.StatusScheduled && in.HoldType != HoldTypeSeatBlock {
				return fmt.Errorf("%w: sale has not opened", ErrSaleClosed)
			}
			if !snap.CanFit(in.SeatCount) {
				return errs.CapacityExceededf("requested %d seats, %d bookable", in.SeatCount, snap.BookableSeats)
			}

			expiresAt, err := s.expiry(in, *c, now)
			if err != nil {
				return err
			}

			hold := Hold{
				TenantID:     c.TenantID,
				CapacityID:   c.ID,
				SeatCount:    in.SeatCount,
				Source:       in.Source,
				HoldType:     in.HoldType,
				BlockType:    in.BlockType,
				ChannelScope: in.ChannelScope,
				Reference:    in.Reference,
				ExpiresAt:    expiresAt,
				CreatedAt:    now,
			}
			if err := s.repo.WithTx(tx).Create(ctx, &hold); err != nil {
				return err
			}

			after, nextStatus := s.capacity.Evaluate(c.WithStatus(status), sums[c.ID]+in.SeatCount, now)
			updated := c.WithStatus(nextStatus)
			if err := capacities.UpdateWithVersion(ctx, &updated); err != nil {
				if errors.Is(err, capacity.ErrVersionConflict) {
					s.log.LogVersionConflict(ctx, c.ID.String(), attempt)
				}
				return err
			}

			change = seatChange{before: *c, after: updated}
			result = AcquireResult{
				Hold:                hold,
				Availability:        after,
				Status:              nextStatus,
				RequiresOverbooking: snap.RequiresOverbooking(in.SeatCount),
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	h := result.Hold
	s.log.LogHoldAcquired(ctx, h.ID.String(), h.CapacityID.String(), h.SeatCount, result.RequiresOverbooking)
	s.afterSeatChange(ctx, change, publisher.EventHoldAcquired, &h, "")
	return &result, nil
}

// ConfirmHold converts an active hold into confirmed seats of a booking.
func (s *service) ConfirmHold(ctx context.Context, holdID, bookingID uuid.UUID) (*Hold, error) {
	if bookingID == uuid.Nil {
		return nil, errs.Validationf("booking_id is required")
	}

	var (
		confirmed Hold
		change    seatChange
		lapsed    *Hold
	)
	err := s.config.Retry.Run(ctx, func(attempt int) error {
		lapsed = nil
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			holds := s.repo.WithTx(tx)
			h, err := holds.GetByID(ctx, holdID)
			if err != nil {
				return err
			}
			if h.ReleaseReason != nil {
				return fmt.Errorf("%w: hold is %s", ErrHoldTerminal, *h.ReleaseReason)
			}
			if h.HoldType == HoldTypeSeatBlock {
				return errs.Validationf("seat blocks cannot be confirmed")
			}

			now := s.clock.Now()
			if !h.IsActive(now) {
				// lapsed but not yet swept: record the expiry and commit it
				if _, err := holds.MarkReleased(ctx, h.ID, ReasonExpired, now, nil, nil); err != nil {
					return err
				}
				lapsed = h
				return nil
			}

			capacities := s.capacities.WithTx(tx)
			c, err := capacities.GetByID(ctx, h.CapacityID)
			if err != nil {
				return err
			}
			if c.Status == capacity.StatusCancelled {
				return fmt.Errorf("%w: capacity is %s", ErrSaleClosed, c.Status)
			}

			ok, err := holds.MarkReleased(ctx, h.ID, ReasonConfirmed, now, &bookingID, &now)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: hold was released concurrently", ErrHoldTerminal)
			}

			sums, err := capacities.SumActiveHoldSeats(ctx, []uuid.UUID{c.ID}, now)
			if err != nil {
				return err
			}
			updated := *c
			updated.ConfirmedSeats += h.SeatCount
			_, status := s.capacity.Evaluate(updated, sums[c.ID], now)
			updated.Status = status
			if err := capacities.UpdateWithVersion(ctx, &updated); err != nil {
				if errors.Is(err, capacity.ErrVersionConflict) {
					s.log.LogVersionConflict(ctx, c.ID.String(), attempt)
				}
				return err
			}

			reason := ReasonConfirmed
			confirmed = *h
			confirmed.BookingID = &bookingID
			confirmed.ReleasedAt = &now
			confirmed.ReleaseReason = &reason
			change = seatChange{before: *c, after: updated}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if lapsed != nil {
		s.log.LogHoldReleased(ctx, lapsed.ID.String(), lapsed.CapacityID.String(), string(ReasonExpired))
		s.capacity.InvalidateCalendar(ctx, lapsed.TenantID)
		s.notifySeatsFreed(ctx, lapsed.CapacityID)
		return nil, ErrHoldExpired
	}

	s.log.LogHoldReleased(ctx, confirmed.ID.String(), confirmed.CapacityID.String(), string(ReasonConfirmed))
	s.afterSeatChange(ctx, change, publisher.EventHoldConfirmed, &confirmed, string(ReasonConfirmed))
	return &confirmed, nil
}

// ReleaseHold releases an unreleased hold. A hold that already reached a
// terminal state is returned unchanged.
func (s *service) ReleaseHold(ctx context.Context, holdID uuid.UUID, reason ReleaseReason) (*Hold, error) {
	if reason == "" {
		reason = ReasonCancelled
	}
	// CONFIRMED and EXPIRED are only ever recorded by confirm and the lapse paths
	if reason != ReasonCancelled && reason != ReasonManual {
		return nil, errs.Validationf("invalid release reason %q", reason)
	}
	h, _, err := s.release(ctx, holdID, reason)
	return h, err
}

// release reports whether this call performed the release.
func (s *service) release(ctx context.Context, holdID uuid.UUID, reason ReleaseReason) (*Hold, bool, error) {
	var (
		released Hold
		change   seatChange
		changed  bool
	)
	err := s.config.Retry.Run(ctx, func(attempt int) error {
		changed = false
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			holds := s.repo.WithTx(tx)
			h, err := holds.GetByID(ctx, holdID)
			if err != nil {
				return err
			}
			if h.ReleaseReason != nil {
				released = *h
				return nil
			}

			now := s.clock.Now()
			applied := reason
			if !h.IsActive(now) {
				applied = ReasonExpired
			}

			ok, err := holds.MarkReleased(ctx, h.ID, applied, now, nil, nil)
			if err != nil {
				return err
			}
			if !ok {
				current, err := holds.GetByID(ctx, holdID)
				if err != nil {
					return err
				}
				released = *current
				return nil
			}

			capacities := s.capacities.WithTx(tx)
			c, err := capacities.GetByID(ctx, h.CapacityID)
			if err != nil {
				return err
			}
			sums, err := capacities.SumActiveHoldSeats(ctx, []uuid.UUID{c.ID}, now)
			if err != nil {
				return err
			}
			_, status := s.capacity.Evaluate(*c, sums[c.ID], now)
			updated := c.WithStatus(status)
			if err := capacities.UpdateWithVersion(ctx, &updated); err != nil {
				if errors.Is(err, capacity.ErrVersionConflict) {
					s.log.LogVersionConflict(ctx, c.ID.String(), attempt)
				}
				return err
			}

			released = *h
			released.ReleasedAt = &now
			released.ReleaseReason = &applied
			change = seatChange{before: *c, after: updated}
			changed = true
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		s.log.LogHoldReleased(ctx, released.ID.String(), released.CapacityID.String(), string(*released.ReleaseReason))
		s.afterSeatChange(ctx, change, publisher.EventHoldReleased, &released, string(*released.ReleaseReason))
		s.notifySeatsFreed(ctx, released.CapacityID)
	}
	return &released, changed, nil
}

func (s *service) CheckAvailability(ctx context.Context, capacityID uuid.UUID, seatCount int) (*AvailabilityResult, error) {
	if seatCount < 1 {
		return nil, errs.Validationf("seats must be at least 1")
	}

	c, err := s.capacities.GetByID(ctx, capacityID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	sums, err := s.capacities.SumActiveHoldSeats(ctx, []uuid.UUID{c.ID}, now)
	if err != nil {
		return nil, err
	}

	snap, status := s.capacity.Evaluate(*c, sums[c.ID], now)
	selling := !status.IsSaleClosed() && status != capacity.StatusScheduled
	return &AvailabilityResult{
		CapacityID:          c.ID,
		Seats:               seatCount,
		Available:           selling && snap.CanFit(seatCount),
		AvailableSeats:      snap.AvailableSeats,
		BookableSeats:       snap.BookableSeats,
		RequiresOverbooking: selling && snap.RequiresOverbooking(seatCount),
		Status:              status,
		Snapshot:            snap,
	}, nil
}

func (s *service) GetHold(ctx context.Context, id uuid.UUID) (*Hold, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListHolds(ctx context.Context, capacityID uuid.UUID, activeOnly bool, holdType *HoldType) ([]Hold, error) {
	if holdType != nil && !holdType.IsValid() {
		return nil, errs.Validationf("unknown hold type %q", *holdType)
	}
	return s.repo.ListByCapacity(ctx, capacityID, ListFilter{
		ActiveOnly: activeOnly,
		HoldType:   holdType,
		Now:        s.clock.Now(),
	})
}

func (s *service) ReleaseConfirmedSeats(ctx context.Context, capacityID uuid.UUID, seats int) (*capacity.CapacityWithAvailability, error) {
	if seats < 1 {
		return nil, errs.Validationf("seats must be at least 1")
	}

	var (
		result capacity.CapacityWithAvailability
		change seatChange
	)
	err := s.config.Retry.Run(ctx, func(attempt int) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			capacities := s.capacities.WithTx(tx)
			c, err := capacities.GetByID(ctx, capacityID)
			if err != nil {
				return err
			}
			if seats > c.ConfirmedSeats {
				return errs.Validationf("cannot release %d seats, %d confirmed", seats, c.ConfirmedSeats)
			}

			now := s.clock.Now()
			sums, err := capacities.SumActiveHoldSeats(ctx, []uuid.UUID{c.ID}, now)
			if err != nil {
				return err
			}
			updated := *c
			updated.ConfirmedSeats -= seats
			snap, status := s.capacity.Evaluate(updated, sums[c.ID], now)
			updated.Status = status
			if err := capacities.UpdateWithVersion(ctx, &updated); err != nil {
				if errors.Is(err, capacity.ErrVersionConflict) {
					s.log.LogVersionConflict(ctx, c.ID.String(), attempt)
				}
				return err
			}

			change = seatChange{before: *c, after: updated}
			result = capacity.CapacityWithAvailability{Capacity: updated, Availability: snap}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterSeatChange(ctx, change, publisher.EventCapacityUpdated, nil, "CONFIRMED_SEATS_RELEASED")
	s.notifySeatsFreed(ctx, capacityID)
	return &result, nil
}

func (s *service) ReclaimExpired(ctx context.Context, batch int) (int, error) {
	if batch <= 0 {
		batch = s.config.ReclaimBatch
	}
	expired, err := s.repo.FindExpired(ctx, s.clock.Now(), batch)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, h := range expired {
		if err := ctx.Err(); err != nil {
			return reclaimed, err
		}
		_, changed, err := s.release(ctx, h.ID, ReasonExpired)
		if err != nil {
			if errors.Is(err, errs.ErrTransientConflict) {
				continue
			}
			return reclaimed, err
		}
		if changed {
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (s *service) afterSeatChange(ctx context.Context, change seatChange, eventType publisher.EventType, h *Hold, reason string) {
	before, after := change.before, change.after
	now := s.clock.Now()
	if before.Status != after.Status {
		s.log.LogStatusChanged(ctx, after.ID.String(), string(before.Status), string(after.Status))
		statusEvent := publisher.NewEvent(publisher.EventStatusChanged, after.TenantID, after.ID, after.Version, now)
		statusEvent.Status = string(after.Status)
		s.publish(ctx, statusEvent)
	}
	s.capacity.InvalidateCalendar(ctx, after.TenantID)

	event := publisher.NewEvent(eventType, after.TenantID, after.ID, after.Version, now)
	if h != nil {
		event = event.WithHold(h.ID, h.SeatCount)
	}
	event.Status = string(after.Status)
	event.Reason = reason
	s.publish(ctx, event)
}

func (s *service) publish(ctx context.Context, event publisher.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WarnContext(ctx, "inventory event publish failed", "type", string(event.Type), "error", err)
	}
}

func (s *service) notifySeatsFreed(ctx context.Context, capacityID uuid.UUID) {
	s.mu.RLock()
	listeners := append([]capacity.SeatListener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, l := range listeners {
		l.SeatsFreed(ctx, capacityID)
	}
}
