package capacity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripstock/internal/shared/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// holdsTable is read for active seat sums. The holds package owns its schema.
const holdsTable = "holds"

type Repository interface {
	// WithTx binds the repository to an open transaction
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, c *Capacity) error
	GetByID(ctx context.Context, id uuid.UUID) (*Capacity, error)
	// ListByDateRange ignores filter.Statuses. A Limit of zero returns the whole window.
	ListByDateRange(ctx context.Context, filter CalendarFilter) ([]Capacity, int64, error)
	ListNonFinal(ctx context.Context, limit int) ([]Capacity, error)

	// UpdateWithVersion writes the mutable fields of c only if the stored
	// version still equals c.Version. It returns ErrVersionConflict otherwise
	// and bumps c.Version on success.
	UpdateWithVersion(ctx context.Context, c *Capacity) error

	// SumActiveHoldSeats returns unreleased, unexpired held seats per capacity id.
	SumActiveHoldSeats(ctx context.Context, ids []uuid.UUID, now time.Time) (map[uuid.UUID]int, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, c *Capacity) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create capacity: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Capacity, error) {
	var c Capacity
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("capacity %s", id)
		}
		return nil, fmt.Errorf("failed to get capacity: %w", err)
	}
	return &c, nil
}

func (r *repository) ListByDateRange(ctx context.Context, filter CalendarFilter) ([]Capacity, int64, error) {
	query := r.db.WithContext(ctx).Model(&Capacity{}).
		Where("tenant_id = ?", filter.TenantID).
		Where("sale_date <= ?", filter.To).
		Where("COALESCE(end_date, sale_date) >= ?", filter.From)

	if filter.ResourceID != nil {
		query = query.Where("resource_id = ?", *filter.ResourceID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count capacities: %w", err)
	}

	query = query.Order("sale_date ASC, time_of_day ASC, id ASC")
	if filter.Limit > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.Limit).Limit(filter.Limit)
	}

	var records []Capacity
	err := query.Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list capacities: %w", err)
	}
	return records, total, nil
}

func (r *repository) ListNonFinal(ctx context.Context, limit int) ([]Capacity, error) {
	var records []Capacity
	query := r.db.WithContext(ctx).
		Where("status NOT IN ?", []Status{StatusCancelled, StatusDeparted}).
		Order("sale_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list open capacities: %w", err)
	}
	return records, nil
}

func (r *repository) UpdateWithVersion(ctx context.Context, c *Capacity) error {
	next := c.Version + 1
	result := r.db.WithContext(ctx).
		Model(&Capacity{}).
		Where("id = ? AND version = ?", c.ID, c.Version).
		Updates(map[string]interface{}{
			"total_capacity":    c.TotalCapacity,
			"blocked_seats":     c.BlockedSeats,
			"overbooking_limit": c.OverbookingLimit,
			"min_participants":  c.MinParticipants,
			"confirmed_seats":   c.ConfirmedSeats,
			"cutoff_at":         c.CutoffAt,
			"sale_opens_at":     c.SaleOpensAt,
			"waitlist_enabled":  c.WaitlistEnabled,
			"is_guaranteed":     c.IsGuaranteed,
			"status":            c.Status,
			"version":           next,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update capacity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	c.Version = next
	return nil
}

func (r *repository) SumActiveHoldSeats(ctx context.Context, ids []uuid.UUID, now time.Time) (map[uuid.UUID]int, error) {
	sums := make(map[uuid.UUID]int, len(ids))
	if len(ids) == 0 {
		return sums, nil
	}

	var rows []struct {
		CapacityID uuid.UUID `gorm:"column:capacity_id"`
		Seats      int       `gorm:"column:seats"`
	}
	err := r.db.WithContext(ctx).
		Table(holdsTable).
		Select("capacity_id, COALESCE(SUM(seat_count), 0) AS seats").
		Where("capacity_id IN ?", ids).
		Where("released_at IS NULL AND expires_at > ?", now).
		Group("capacity_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum active holds: %w", err)
	}

	for _, row := range rows {
		sums[row.CapacityID] = row.Seats
	}
	return sums, nil
}
