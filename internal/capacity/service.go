package capacity

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"tripstock/internal/publisher"
	"tripstock/internal/shared/errs"
	"tripstock/pkg/cache"
	"tripstock/pkg/clock"
	"tripstock/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const calendarKeyPrefix = "tripstock:calendar"

// SeatListener is told when seats may have become available on a record.
type SeatListener interface {
	SeatsFreed(ctx context.Context, capacityID uuid.UUID)
}

// CapacityWithAvailability pairs a record with its live snapshot
type CapacityWithAvailability struct {
	Capacity     Capacity `json:"capacity"`
	Availability Snapshot `json:"availability"`
}

// CalendarPage is one page of calendar results
type CalendarPage struct {
	Items []CapacityWithAvailability `json:"items"`
	Total int64                      `json:"total"`
	Page  int                        `json:"page"`
	Limit int                        `json:"limit"`
}

// ServiceConfig holds capacity service tuning
type ServiceConfig struct {
	CalendarCacheTTL time.Duration
	FewLeftRatio     float64
	Retry            RetryPolicy
	SweepLimit       int
}

// DefaultServiceConfig returns the default capacity service configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		CalendarCacheTTL: 30 * time.Second,
		FewLeftRatio:     DefaultFewLeftRatio,
		Retry:            DefaultRetryPolicy(),
		SweepLimit:       1000,
	}
}

type Service interface {
	Create(ctx context.Context, in CreateInput) (*CapacityWithAvailability, error)
	Get(ctx context.Context, id uuid.UUID) (*CapacityWithAvailability, error)
	ListForCalendar(ctx context.Context, filter CalendarFilter) (*CalendarPage, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*CapacityWithAvailability, error)
	Cancel(ctx context.Context, id uuid.UUID) (*CapacityWithAvailability, error)
	OpenSale(ctx context.Context, id uuid.UUID) (*CapacityWithAvailability, error)
	SweepTimeTransitions(ctx context.Context) (int, error)

	// Evaluate derives the snapshot and status of c for heldSeats active held seats.
	Evaluate(c Capacity, heldSeats int, now time.Time) (Snapshot, Status)
	InvalidateCalendar(ctx context.Context, tenantID uuid.UUID)
	AddSeatListener(l SeatListener)
}

type service struct {
	db        *gorm.DB
	repo      Repository
	cache     cache.Service
	publisher publisher.Publisher
	clock     clock.Clock
	validate  *validator.Validate
	log       *logger.Logger
	config    *ServiceConfig

	mu        sync.RWMutex
	listeners []SeatListener
}

func NewService(db *gorm.DB, repo Repository, cacheSvc cache.Service, pub publisher.Publisher, clk clock.Clock, config *ServiceConfig) Service {
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
		db:        db,
		repo:      repo,
		cache:     cacheSvc,
		publisher: pub,
		clock:     clk,
		validate:  validator.New(),
		log:       logger.GetDefault(),
		config:    config,
	}
}

func (s *service) AddSeatListener(l SeatListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

func (s *service) Evaluate(c Capacity, heldSeats int, now time.Time) (Snapshot, Status) {
	snap := ComputeAvailability(c, heldSeats, c.ConfirmedSeats)
	facts := FactsFor(c, now)
	facts.FewLeftRatio = s.config.FewLeftRatio
	return snap, DeriveStatus(c.Status, snap, facts)
}

func (s *service) Create(ctx context.Context, in CreateInput) (*CapacityWithAvailability, error) {
	if err := errs.Validate(s.validate, in); err != nil {
		return nil, err
	}
	if in.SaleDate.IsZero() {
		return nil, errs.Validationf("sale_date is required")
	}

	now := s.clock.Now()
	saleDate := dateOnly(in.SaleDate)
	if saleDate.Before(dateOnly(now)) {
		return nil, errs.Validationf("sale_date %s is in the past", saleDate.Format(dateLayout))
	}

	c := Capacity{
		ID:               uuid.New(),
		TenantID:         in.TenantID,
		ResourceID:       in.ResourceID,
		SaleDate:         saleDate,
		TimeOfDay:        in.TimeOfDay,
		TotalCapacity:    in.TotalCapacity,
		BlockedSeats:     in.BlockedSeats,
		OverbookingLimit: in.OverbookingLimit,
		MinParticipants:  in.MinParticipants,
		WaitlistEnabled:  in.WaitlistEnabled,
		IsGuaranteed:     in.IsGuaranteed,
		Status:           StatusScheduled,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if in.EndDate != nil {
		end := dateOnly(*in.EndDate)
		if end.Before(saleDate) {
			return nil, errs.Validationf("end_date must not be before sale_date")
		}
		c.EndDate = &end
	}
	if err := c.validateNumbers(); err != nil {
		return nil, errs.Validationf("%v", err)
	}
	if in.CutoffAt != nil {
		cutoff := in.CutoffAt.UTC()
		if cutoff.After(c.DepartureAt()) {
			return nil, errs.Validationf("cutoff_at must not be after departure")
		}
		c.CutoffAt = &cutoff
	}

	// without an explicit opening time the sale opens on creation
	opensAt := now
	if in.SaleOpensAt != nil {
		opensAt = in.SaleOpensAt.UTC()
	}
	c.SaleOpensAt = &opensAt

	snap, status := s.Evaluate(c, 0, now)
	c.Status = status

	if err := s.repo.Create(ctx, &c); err != nil {
		return nil, err
	}

	s.InvalidateCalendar(ctx, c.TenantID)
	s.publish(ctx, publisher.NewEvent(publisher.EventCapacityCreated, c.TenantID, c.ID, c.Version, now), string(c.Status))

	return &CapacityWithAvailability{Capacity: c, Availability: snap}, nil
}

// Get returns the record with its live availability. The status shown is the
// derived one; the stored status catches up on the next write or sweep.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*CapacityWithAvailability, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	sums, err := s.repo.SumActiveHoldSeats(ctx, []uuid.UUID{c.ID}, now)
	if err != nil {
		return nil, err
	}

	snap, status := s.Evaluate(*c, sums[c.ID], now)
	return &CapacityWithAvailability{Capacity: c.WithStatus(status), Availability: snap}, nil
}

func (s *service) ListForCalendar(ctx context.Context, filter CalendarFilter) (*CalendarPage, error) {
	if filter.TenantID == uuid.Nil {
		return nil, errs.Validationf("tenant is required")
	}
	if filter.From.IsZero() || filter.To.IsZero() {
		return nil, errs.Validationf("from and to are required")
	}
	if filter.To.Before(filter.From) {
		return nil, errs.Validationf("to must not be before from")
	}
	for _, st := range filter.Statuses {
		if !st.IsValid() {
			return nil, errs.Validationf("unknown status %q", st)
		}
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	filter.From = dateOnly(filter.From)
	filter.To = dateOnly(filter.To)

	fetch := func() (interface{}, error) {
		return s.loadCalendar(ctx, filter)
	}

	if s.cache == nil {
		return s.loadCalendar(ctx, filter)
	}

	var page CalendarPage
	if err := s.cache.GetOrSet(ctx, calendarKey(filter), s.config.CalendarCacheTTL, fetch, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *service) loadCalendar(ctx context.Context, filter CalendarFilter) (*CalendarPage, error) {
	query := filter
	if len(filter.Statuses) > 0 {
		// stored status lags behind lapsed holds, so page after deriving
		query.Page, query.Limit = 1, 0
	}
	records, total, err := s.repo.ListByDateRange(ctx, query)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(records))
	for i, c := range records {
		ids[i] = c.ID
	}

	now := s.clock.Now()
	sums, err := s.repo.SumActiveHoldSeats(ctx, ids, now)
	if err != nil {
		return nil, err
	}

	items := make([]CapacityWithAvailability, 0, len(records))
	for _, c := range records {
		snap, status := s.Evaluate(c, sums[c.ID], now)
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, status) {
			continue
		}
		items = append(items, CapacityWithAvailability{Capacity: c.WithStatus(status), Availability: snap})
	}

	if len(filter.Statuses) > 0 {
		total = int64(len(items))
		items = pageOf(items, filter.Page, filter.Limit)
	}
	return &CalendarPage{Items: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func pageOf(items []CapacityWithAvailability, page, limit int) []CapacityWithAvailability {
	start := (page - 1) * limit
	if start >= len(items) {
		return []CapacityWithAvailability{}
	}
	return items[start:min(start+limit, len(items))]
}

func (s *service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*CapacityWithAvailability, error) {
	if err := errs.Validate(s.validate, in); err != nil {
		return nil, err
	}

	var (
		result   CapacityWithAvailability
		previous Capacity
	)
	err := s.config.Retry.Run(ctx, func(attempt int) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			current, err := repo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if current.Status.IsFinal() {
				return errs.Validationf("capacity is %s and can no longer be edited", current.Status)
			}

			edited := current.WithAdminEdit(in)
			if err := edited.validateNumbers(); err != nil {
				return errs.Validationf("%v", err)
			}
			if edited.CutoffAt != nil && edited.CutoffAt.After(edited.DepartureAt()) {
				return errs.Validationf("cutoff_at must not be after departure")
			}

			now := s.clock.Now()
			sums, err := repo.SumActiveHoldSeats(ctx, []uuid.UUID{id}, now)
			if err != nil {
				return err
			}
			snap, status := s.Evaluate(edited, sums[id], now)
			if snap.BookableSeats < 0 {
				return errs.Validationf("edit leaves %d committed seats above max bookable %d", snap.CommittedSeats, snap.MaxBookable)
			}
			edited.Status = status

			if err := repo.UpdateWithVersion(ctx, &edited); err != nil {
				if errors.Is(err, ErrVersionConflict) {
					s.log.LogVersionConflict(ctx, id.String(), attempt)
				}
				return err
			}
			previous = *current
			result = CapacityWithAvailability{Capacity: edited, Availability: snap}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	c := result.Capacity
	s.afterWrite(ctx, previous, c, publisher.EventCapacityUpdated)
	if previous.MaxBookable() < c.MaxBookable() || c.WaitlistEnabled != previous.WaitlistEnabled {
		s.notifySeatsFreed(ctx, c.ID)
	}
	return &result, nil
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID) (*CapacityWithAvailability, error) {
	return s.transition(ctx, id, func(c Capacity, _ Snapshot, _ StatusFacts) (Status, error) {
		return Cancel(c.Status)
	})
}

func (s *service) OpenSale(ctx context.Context, id uuid.UUID) (*CapacityWithAvailability, error) {
	return s.transition(ctx, id, func(c Capacity, snap Snapshot, facts StatusFacts) (Status, error) {
		return OpenSale(c.Status, snap, facts)
	})
}

type transitionFunc func(c Capacity, snap Snapshot, facts StatusFacts) (Status, error)

// transition applies an operator status change with a version-checked write.
func (s *service) transition(ctx context.Context, id uuid.UUID, next transitionFunc) (*CapacityWithAvailability, error) {
	var (
		result   CapacityWithAvailability
		previous Capacity
		changed  bool
	)
	err := s.config.Retry.Run(ctx, func(attempt int) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			current, err := repo.GetByID(ctx, id)
			if err != nil {
				return err
			}

			now := s.clock.Now()
			sums, err := repo.SumActiveHoldSeats(ctx, []uuid.UUID{id}, now)
			if err != nil {
				return err
			}
			snap := ComputeAvailability(*current, sums[id], current.ConfirmedSeats)
			facts := FactsFor(*current, now)
			facts.FewLeftRatio = s.config.FewLeftRatio

			status, err := next(*current, snap, facts)
			if err != nil {
				return err
			}

			updated := current.WithStatus(status)
			if current.Status == StatusScheduled && status != StatusScheduled && status != StatusCancelled {
				updated.SaleOpensAt = &now
			}
			previous = *current
			if status == current.Status {
				result = CapacityWithAvailability{Capacity: *current, Availability: snap}
				return nil
			}

			if err := repo.UpdateWithVersion(ctx, &updated); err != nil {
				if errors.Is(err, ErrVersionConflict) {
					s.log.LogVersionConflict(ctx, id.String(), attempt)
				}
				return err
			}
			result = CapacityWithAvailability{Capacity: updated, Availability: snap}
			changed = true
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.afterWrite(ctx, previous, result.Capacity, publisher.EventStatusChanged)
		if previous.Status == StatusScheduled {
			s.notifySeatsFreed(ctx, id)
		}
	}
	return &result, nil
}

// SweepTimeTransitions persists cutoff, departure and sale-opening transitions
// of records nobody has written to recently. Records that conflict are left
// for the next sweep.
func (s *service) SweepTimeTransitions(ctx context.Context) (int, error) {
	records, err := s.repo.ListNonFinal(ctx, s.config.SweepLimit)
	if err != nil {
		return 0, err
	}

	ids := make([]uuid.UUID, len(records))
	for i, c := range records {
		ids[i] = c.ID
	}
	now := s.clock.Now()
	sums, err := s.repo.SumActiveHoldSeats(ctx, ids, now)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, c := range records {
		_, status := s.Evaluate(c, sums[c.ID], now)
		if status == c.Status {
			continue
		}

		updated := c.WithStatus(status)
		if err := s.repo.UpdateWithVersion(ctx, &updated); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				continue
			}
			return changed, err
		}
		changed++
		s.afterWrite(ctx, c, updated, publisher.EventStatusChanged)
		if c.Status == StatusScheduled {
			s.notifySeatsFreed(ctx, c.ID)
		}
	}
	return changed, nil
}

func (s *service) InvalidateCalendar(ctx context.Context, tenantID uuid.UUID) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("%s:%s:*", calendarKeyPrefix, tenantID)
	if err := s.cache.DeletePattern(ctx, pattern); err != nil {
		s.log.WarnContext(ctx, "calendar cache invalidation failed", "tenant_id", tenantID.String(), "error", err)
	}
}

func (s *service) afterWrite(ctx context.Context, before, after Capacity, eventType publisher.EventType) {
	if before.Status != after.Status {
		s.log.LogStatusChanged(ctx, after.ID.String(), string(before.Status), string(after.Status))
	}
	s.InvalidateCalendar(ctx, after.TenantID)
	s.publish(ctx, publisher.NewEvent(eventType, after.TenantID, after.ID, after.Version, s.clock.Now()), string(after.Status))
}

func (s *service) publish(ctx context.Context, event publisher.Event, status string) {
	event.Status = status
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WarnContext(ctx, "inventory event publish failed", "type", string(event.Type), "error", err)
	}
}

func (s *service) notifySeatsFreed(ctx context.Context, capacityID uuid.UUID) {
	s.mu.RLock()
	listeners := append([]SeatListener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, l := range listeners {
		l.SeatsFreed(ctx, capacityID)
	}
}

func calendarKey(f CalendarFilter) string {
	resource := "all"
	if f.ResourceID != nil {
		resource = f.ResourceID.String()
	}
	statuses := make([]string, len(f.Statuses))
	for i, st := range f.Statuses {
		statuses[i] = string(st)
	}
	sort.Strings(statuses)

	return fmt.Sprintf("%s:%s:%s:%s:%s:%s:%d:%d",
		calendarKeyPrefix, f.TenantID, resource,
		f.From.Format(dateLayout), f.To.Format(dateLayout),
		strings.Join(statuses, ","), f.Page, f.Limit)
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
