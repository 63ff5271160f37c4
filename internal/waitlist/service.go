package waitlist

import (
	"context"
	"errors"
	"fmt"

	"tripstock/internal/capacity"
	"tripstock/internal/holds"
	"tripstock/internal/publisher"
	"tripstock/internal/shared/errs"
	"tripstock/pkg/clock"
	"tripstock/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// JoinInput asks for seats on a sold-out record
type JoinInput struct {
	TenantID   uuid.UUID    `validate:"required"`
	CapacityID uuid.UUID    `validate:"required"`
	Quantity   int          `validate:"min=1"`
	Source     holds.Source `validate:"required"`
	Reference  string       `validate:"max=255"`
}

// EntryView is an entry with its current queue position (0 once it left the queue)
type EntryView struct {
	Entry    Entry `json:"entry"`
	Position int64 `json:"position"`
}

// ServiceConfig contains configuration for the waitlist service
type ServiceConfig struct {
	MaxWaitlistSize     int
	MaxQuantityPerEntry int
	BatchSize           int
}

// DefaultServiceConfig returns default service configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxWaitlistSize:     MaxWaitlistSize,
		MaxQuantityPerEntry: MaxQuantityPerEntry,
		BatchSize:           PromotionBatchSize,
	}
}

// Service interface defines the contract for waitlist business operations
type Service interface {
	Join(ctx context.Context, in JoinInput) (*EntryView, error)
	Leave(ctx context.Context, entryID uuid.UUID) (*Entry, error)
	Get(ctx context.Context, entryID uuid.UUID) (*EntryView, error)
	List(ctx context.Context, capacityID uuid.UUID, status *Status) ([]Entry, error)

	// Promote converts waiting entries into PAYMENT_PENDING holds in strict
	// FIFO order, stopping at the first entry that does not fit.
	Promote(ctx context.Context, capacityID uuid.UUID) ([]Entry, error)

	// SeatsFreed triggers promotion; it is registered as a seat listener.
	SeatsFreed(ctx context.Context, capacityID uuid.UUID)

	// PromotePending runs Promote for every record with waiting entries and
	// returns how many entries were promoted. It picks up triggers that
	// SeatsFreed lost to a busy lock.
	PromotePending(ctx context.Context) (int, error)
}

// service implements the Service interface
type service struct {
	repo       Repository
	capacities capacity.Service
	holds      holds.Service
	locker     Locker
	publisher  publisher.Publisher
	clock      clock.Clock
	validate   *validator.Validate
	log        *logger.Logger
	config     *ServiceConfig
}

// NewService creates a new waitlist service
func NewService(repo Repository, capacities capacity.Service, holdSvc holds.Service, locker Locker, pub publisher.Publisher, clk clock.Clock, config *ServiceConfig) Service {
	if config == nil {
		config = DefaultServiceConfig()
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	if pub == nil {
		pub = publisher.Noop{}
	}
	if clk == nil {
		clk = clock.System()
	}
	return &service{
		repo:       repo,
		capacities: capacities,
		holds:      holdSvc,
		locker:     locker,
		publisher:  pub,
		clock:      clk,
		validate:   validator.New(),
		log:        logger.GetDefault(),
		config:     config,
	}
}

// promotingKey marks a context inside a promotion pass so releases made by
// the pass do not start another one on the same lock.
type promotingKey struct{}

func (s *service) Join(ctx context.Context, in JoinInput) (*EntryView, error) {
	if err := errs.Validate(s.validate, in); err != nil {
		return nil, err
	}
	if !in.Source.IsValid() {
		return nil, errs.Validationf("unknown source %q", in.Source)
	}
	if in.Quantity > s.config.MaxQuantityPerEntry {
		return nil, errs.Validationf("quantity may not exceed %d", s.config.MaxQuantityPerEntry)
	}

	view, err := s.capacities.Get(ctx, in.CapacityID)
	if err != nil {
		return nil, err
	}
	c := view.Capacity
	if c.TenantID != in.TenantID {
		return nil, errs.NotFoundf("capacity %s", in.CapacityID)
	}
	if !c.WaitlistEnabled {
		return nil, errs.Validationf("capacity %s has no waitlist", c.ID)
	}
	if c.Status.IsSaleClosed() || c.Status == capacity.StatusScheduled {
		return nil, fmt.Errorf("%w: capacity is %s", holds.ErrSaleClosed, c.Status)
	}
	soldOut := c.Status == capacity.StatusFull || c.Status == capacity.StatusWaitlist
	if !soldOut && in.Quantity <= view.Availability.BookableSeats {
		return nil, errs.Validationf("%d seats are bookable, hold them directly", view.Availability.BookableSeats)
	}

	unlock, err := s.locker.Lock(ctx, LockKey(c.ID))
	if err != nil {
		return nil, err
	}
	defer s.unlock(ctx, unlock, c.ID)

	waiting, err := s.repo.CountWaiting(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if waiting >= int64(s.config.MaxWaitlistSize) {
		return nil, errs.Validationf("waitlist is full")
	}

	seq, err := s.repo.NextSeq(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	entry := Entry{
		TenantID:   c.TenantID,
		CapacityID: c.ID,
		Seq:        seq,
		Quantity:   in.Quantity,
		Source:     string(in.Source),
		Reference:  in.Reference,
		Status:     StatusWaiting,
		JoinedAt:   now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, &entry); err != nil {
		return nil, err
	}

	s.log.InfoWithContext(ctx, "waitlist joined", map[string]interface{}{
		"entry_id":    entry.ID.String(),
		"capacity_id": c.ID.String(),
		"quantity":    entry.Quantity,
		"position":    waiting + 1,
	})
	return &EntryView{Entry: entry, Position: waiting + 1}, nil
}

// Leave cancels a waiting entry. Leaving twice is a no-op; a promoted entry
// must release its hold instead.
func (s *service) Leave(ctx context.Context, entryID uuid.UUID) (*Entry, error) {
	entry, err := s.repo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	switch entry.Status {
	case StatusCancelled, StatusExpired:
		return entry, nil
	case StatusPromoted:
		return nil, errs.Validationf("entry was promoted to hold %s; release the hold instead", entry.HoldID)
	}

	unlock, err := s.locker.Lock(ctx, LockKey(entry.CapacityID))
	if err != nil {
		return nil, err
	}
	defer s.unlock(ctx, unlock, entry.CapacityID)

	if _, err := s.repo.Transition(ctx, entry.ID, StatusWaiting, StatusCancelled, nil, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, entryID)
}

func (s *service) Get(ctx context.Context, entryID uuid.UUID) (*EntryView, error) {
	entry, err := s.repo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	view := &EntryView{Entry: *entry}
	if entry.IsWaiting() {
		if view.Position, err = s.repo.Position(ctx, entry); err != nil {
			return nil, err
		}
	}
	return view, nil
}

func (s *service) List(ctx context.Context, capacityID uuid.UUID, status *Status) ([]Entry, error) {
	if status != nil && !status.IsValid() {
		return nil, errs.Validationf("unknown waitlist status %q", *status)
	}
	return s.repo.ListByCapacity(ctx, capacityID, status)
}

func (s *service) Promote(ctx context.Context, capacityID uuid.UUID) ([]Entry, error) {
	unlock, err := s.locker.Lock(ctx, LockKey(capacityID))
	if err != nil {
		return nil, err
	}
	defer s.unlock(ctx, unlock, capacityID)

	ctx = context.WithValue(ctx, promotingKey{}, capacityID)

	view, err := s.capacities.Get(ctx, capacityID)
	if err != nil {
		return nil, err
	}
	c := view.Capacity
	if c.Status.IsSaleClosed() {
		expired, err := s.repo.ExpireWaiting(ctx, capacityID, s.clock.Now())
		if err != nil {
			return nil, err
		}
		if expired > 0 {
			s.log.InfoWithContext(ctx, "waitlist expired", map[string]interface{}{
				"capacity_id": capacityID.String(),
				"count":       expired,
				"status":      string(c.Status),
			})
		}
		return nil, nil
	}
	if c.Status == capacity.StatusScheduled {
		return nil, nil
	}

	waiting, err := s.repo.ListWaiting(ctx, capacityID, s.config.BatchSize)
	if err != nil {
		return nil, err
	}

	var promoted []Entry
	for _, entry := range waiting {
		result, err := s.holds.AcquireHold(ctx, holds.AcquireInput{
			TenantID:   entry.TenantID,
			CapacityID: entry.CapacityID,
			SeatCount:  entry.Quantity,
			HoldType:   holds.HoldTypePaymentPending,
			Source:     holds.SourceWaitlist,
			Reference:  "waitlist:" + entry.ID.String(),
		})
		if err != nil {
			if errors.Is(err, errs.ErrCapacityExceeded) {
				break
			}
			return promoted, err
		}

		now := s.clock.Now()
		holdID := result.Hold.ID
		ok, err := s.repo.Transition(ctx, entry.ID, StatusWaiting, StatusPromoted, &holdID, now)
		if err != nil || !ok {
			if _, releaseErr := s.holds.ReleaseHold(ctx, holdID, holds.ReasonCancelled); releaseErr != nil {
				s.log.ErrorWithContext(ctx, "failed to release hold of unpromotable waitlist entry", releaseErr,
					map[string]interface{}{"hold_id": holdID.String()})
			}
			if err != nil {
				return promoted, err
			}
			continue
		}

		entry.Status = StatusPromoted
		entry.HoldID = &holdID
		entry.PromotedAt = &now
		promoted = append(promoted, entry)

		event := publisher.NewEvent(publisher.EventWaitlistPromoted, entry.TenantID, entry.CapacityID, 0, now).
			WithHold(holdID, entry.Quantity)
		event.Metadata = map[string]interface{}{"entry_id": entry.ID.String(), "seq": entry.Seq}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.log.WarnContext(ctx, "inventory event publish failed", "type", string(event.Type), "error", err)
		}
	}

	if len(promoted) > 0 {
		s.log.InfoWithContext(ctx, "waitlist promoted", map[string]interface{}{
			"capacity_id": capacityID.String(),
			"count":       len(promoted),
		})
	}
	return promoted, nil
}

func (s *service) SeatsFreed(ctx context.Context, capacityID uuid.UUID) {
	if ctx.Value(promotingKey{}) != nil {
		return
	}
	if _, err := s.Promote(ctx, capacityID); err != nil {
		s.log.ErrorWithContext(ctx, "waitlist promotion failed", err, map[string]interface{}{
			"capacity_id": capacityID.String(),
		})
	}
}

func (s *service) PromotePending(ctx context.Context) (int, error) {
	ids, err := s.repo.CapacitiesWithWaiting(ctx, s.config.BatchSize)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		promoted, err := s.Promote(ctx, id)
		total += len(promoted)
		if err != nil {
			// another instance holds the queue or the record is gone; the next pass retries
			s.log.WarnContext(ctx, "pending waitlist promotion skipped", "capacity_id", id.String(), "error", err)
		}
	}
	return total, nil
}

func (s *service) unlock(ctx context.Context, unlock UnlockFunc, capacityID uuid.UUID) {
	if err := unlock(context.WithoutCancel(ctx)); err != nil {
		s.log.WarnContext(ctx, "waitlist lock release failed", "capacity_id", capacityID.String(), "error", err)
	}
}
