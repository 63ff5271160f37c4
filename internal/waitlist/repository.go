package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripstock/internal/shared/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository interface defines the contract for waitlist data operations
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// NextSeq returns the sequence number the next entry of a record gets.
	NextSeq(ctx context.Context, capacityID uuid.UUID) (int64, error)
	ListWaiting(ctx context.Context, capacityID uuid.UUID, limit int) ([]Entry, error)
	ListByCapacity(ctx context.Context, capacityID uuid.UUID, status *Status) ([]Entry, error)
	CountWaiting(ctx context.Context, capacityID uuid.UUID) (int64, error)

	// Position is the 1-based rank of a waiting entry among its record's waiting entries.
	Position(ctx context.Context, entry *Entry) (int64, error)

	// Transition moves an entry from one status to another only if it is still in from.
	Transition(ctx context.Context, id uuid.UUID, from, to Status, holdID *uuid.UUID, at time.Time) (bool, error)

	// ExpireWaiting expires every waiting entry of a record.
	ExpireWaiting(ctx context.Context, capacityID uuid.UUID, at time.Time) (int64, error)

	// CapacitiesWithWaiting lists records that still have waiting entries.
	CapacitiesWithWaiting(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// repository implements the Repository interface
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new waitlist repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, entry *Entry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create waitlist entry: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	var entry Entry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("waitlist entry %s", id)
		}
		return nil, fmt.Errorf("failed to get waitlist entry: %w", err)
	}
	return &entry, nil
}

func (r *repository) NextSeq(ctx context.Context, capacityID uuid.UUID) (int64, error) {
	var last int64
	err := r.db.WithContext(ctx).
		Model(&Entry{}).
		Select("COALESCE(MAX(seq), 0)").
		Where("capacity_id = ?", capacityID).
		Scan(&last).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read waitlist sequence: %w", err)
	}
	return last + 1, nil
}

func (r *repository) ListWaiting(ctx context.Context, capacityID uuid.UUID, limit int) ([]Entry, error) {
	var entries []Entry
	query := r.db.WithContext(ctx).
		Where("capacity_id = ? AND status = ?", capacityID, StatusWaiting).
		Order("seq ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list waiting entries: %w", err)
	}
	return entries, nil
}

func (r *repository) ListByCapacity(ctx context.Context, capacityID uuid.UUID, status *Status) ([]Entry, error) {
	query := r.db.WithContext(ctx).Where("capacity_id = ?", capacityID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var entries []Entry
	if err := query.Order("seq ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list waitlist entries: %w", err)
	}
	return entries, nil
}

func (r *repository) CountWaiting(ctx context.Context, capacityID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Entry{}).
		Where("capacity_id = ? AND status = ?", capacityID, StatusWaiting).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count waiting entries: %w", err)
	}
	return count, nil
}

func (r *repository) Position(ctx context.Context, entry *Entry) (int64, error) {
	var ahead int64
	err := r.db.WithContext(ctx).
		Model(&Entry{}).
		Where("capacity_id = ? AND status = ? AND seq < ?", entry.CapacityID, StatusWaiting, entry.Seq).
		Count(&ahead).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute waitlist position: %w", err)
	}
	return ahead + 1, nil
}

func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to Status, holdID *uuid.UUID, at time.Time) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, errs.Validationf("waitlist entry cannot move from %s to %s", from, to)
	}

	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	if to == StatusPromoted {
		updates["promoted_at"] = at
	}
	if holdID != nil {
		updates["hold_id"] = *holdID
	}

	result := r.db.WithContext(ctx).
		Model(&Entry{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update waitlist entry: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ExpireWaiting(ctx context.Context, capacityID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&Entry{}).
		Where("capacity_id = ? AND status = ?", capacityID, StatusWaiting).
		Updates(map[string]interface{}{"status": StatusExpired, "updated_at": at})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire waitlist entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *repository) CapacitiesWithWaiting(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := r.db.WithContext(ctx).
		Model(&Entry{}).
		Distinct("capacity_id").
		Where("status = ?", StatusWaiting).
		Order("capacity_id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("capacity_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list waitlisted capacities: %w", err)
	}
	return ids, nil
}
