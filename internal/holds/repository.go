package holds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripstock/internal/shared/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilter narrows ListByCapacity
type ListFilter struct {
	ActiveOnly bool
	HoldType   *HoldType
	Now        time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, h *Hold) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hold, error)

	// MarkReleased sets the terminal fields of an unreleased hold. When activeAt
	// is set the hold must also be unexpired at that instant. It reports whether
	// this call performed the release.
	MarkReleased(ctx context.Context, id uuid.UUID, reason ReleaseReason, at time.Time, bookingID *uuid.UUID, activeAt *time.Time) (bool, error)

	// FindExpired returns unreleased holds whose expiry is at or before now, oldest first.
	FindExpired(ctx context.Context, now time.Time, limit int) ([]Hold, error)
	ListByCapacity(ctx context.Context, capacityID uuid.UUID, filter ListFilter) ([]Hold, error)
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

func (r *repository) Create(ctx context.Context, h *Hold) error {
	if err := r.db.WithContext(ctx).Create(h).Error; err != nil {
		return fmt.Errorf("failed to create hold: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Hold, error) {
	var h Hold
	err := r.db.WithContext(ctx).First(&h, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("hold %s", id)
		}
		return nil, fmt.Errorf("failed to get hold: %w", err)
	}
	return &h, nil
}

func (r *repository) MarkReleased(ctx context.Context, id uuid.UUID, reason ReleaseReason, at time.Time, bookingID *uuid.UUID, activeAt *time.Time) (bool, error) {
	updates := map[string]interface{}{
		"released_at":    at,
		"release_reason": reason,
	}
	if bookingID != nil {
		updates["booking_id"] = *bookingID
	}

	query := r.db.WithContext(ctx).
		Model(&Hold{}).
		Where("id = ? AND released_at IS NULL", id)
	if activeAt != nil {
		query = query.Where("expires_at > ?", *activeAt)
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to release hold: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) FindExpired(ctx context.Context, now time.Time, limit int) ([]Hold, error) {
	var expired []Hold
	query := r.db.WithContext(ctx).
		Where("released_at IS NULL AND expires_at <= ?", now).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&expired).Error; err != nil {
		return nil, fmt.Errorf("failed to find expired holds: %w", err)
	}
	return expired, nil
}

func (r *repository) ListByCapacity(ctx context.Context, capacityID uuid.UUID, filter ListFilter) ([]Hold, error) {
	query := r.db.WithContext(ctx).Where("capacity_id = ?", capacityID)
	if filter.ActiveOnly {
		query = query.Where("released_at IS NULL AND expires_at > ?", filter.Now)
	}
	if filter.HoldType != nil {
		query = query.Where("hold_type = ?", *filter.HoldType)
	}

	var holds []Hold
	if err := query.Order("created_at ASC, id ASC").Find(&holds).Error; err != nil {
		return nil, fmt.Errorf("failed to list holds: %w", err)
	}
	return holds, nil
}
