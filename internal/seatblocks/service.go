package seatblocks

import (
	"context"
	"time"

	"tripstock/internal/holds"
	"tripstock/internal/shared/errs"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// BlockInput withholds seats of one capacity record from public sale
type BlockInput struct {
	TenantID     uuid.UUID
	CapacityID   uuid.UUID       `validate:"required"`
	SeatCount    int             `validate:"min=1"`
	BlockType    holds.BlockType `validate:"required"`
	ChannelScope string          `validate:"max=100"`
	Until        *time.Time
	Reference    string `validate:"max=255"`
}

// Summary totals the active blocked seats of a record per block type
type Summary struct {
	CapacityID uuid.UUID               `json:"capacity_id"`
	Total      int                     `json:"total"`
	ByType     map[holds.BlockType]int `json:"by_type"`
}

// Service is the seat block registry. Blocks are SEAT_BLOCK holds and go
// through the hold manager like any other seat claim.
type Service interface {
	Create(ctx context.Context, in BlockInput) (*holds.AcquireResult, error)
	Release(ctx context.Context, blockID uuid.UUID) (*holds.Hold, error)
	Get(ctx context.Context, blockID uuid.UUID) (*holds.Hold, error)
	List(ctx context.Context, capacityID uuid.UUID, activeOnly bool) ([]holds.Hold, error)
	Summarize(ctx context.Context, capacityID uuid.UUID) (*Summary, error)
	Now() time.Time
}

type service struct {
	holds    holds.Service
	validate *validator.Validate
}

func NewService(holdSvc holds.Service) Service {
	return &service{holds: holdSvc, validate: validator.New()}
}

func (s *service) Now() time.Time {
	return s.holds.Now()
}

func (s *service) Create(ctx context.Context, in BlockInput) (*holds.AcquireResult, error) {
	if err := errs.Validate(s.validate, in); err != nil {
		return nil, err
	}

	acquire := holds.AcquireInput{
		TenantID:   in.TenantID,
		CapacityID: in.CapacityID,
		SeatCount:  in.SeatCount,
		HoldType:   holds.HoldTypeSeatBlock,
		Source:     holds.SourceAdmin,
		Reference:  in.Reference,
		ExpiresAt:  in.Until,
		BlockType:  &in.BlockType,
	}
	if in.ChannelScope != "" {
		scope := in.ChannelScope
		acquire.ChannelScope = &scope
	}
	return s.holds.AcquireHold(ctx, acquire)
}

func (s *service) Release(ctx context.Context, blockID uuid.UUID) (*holds.Hold, error) {
	if _, err := s.Get(ctx, blockID); err != nil {
		return nil, err
	}
	return s.holds.ReleaseHold(ctx, blockID, holds.ReasonManual)
}

// Get returns the block, or ErrNotFound when the id names an ordinary hold.
func (s *service) Get(ctx context.Context, blockID uuid.UUID) (*holds.Hold, error) {
	h, err := s.holds.GetHold(ctx, blockID)
	if err != nil {
		return nil, err
	}
	if h.HoldType != holds.HoldTypeSeatBlock {
		return nil, errs.NotFoundf("seat block %s", blockID)
	}
	return h, nil
}

func (s *service) List(ctx context.Context, capacityID uuid.UUID, activeOnly bool) ([]holds.Hold, error) {
	blockType := holds.HoldTypeSeatBlock
	return s.holds.ListHolds(ctx, capacityID, activeOnly, &blockType)
}

func (s *service) Summarize(ctx context.Context, capacityID uuid.UUID) (*Summary, error) {
	blocks, err := s.List(ctx, capacityID, true)
	if err != nil {
		return nil, err
	}

	summary := &Summary{CapacityID: capacityID, ByType: make(map[holds.BlockType]int)}
	for _, b := range blocks {
		if b.BlockType == nil {
			continue
		}
		summary.ByType[*b.BlockType] += b.SeatCount
		summary.Total += b.SeatCount
	}
	return summary, nil
}
