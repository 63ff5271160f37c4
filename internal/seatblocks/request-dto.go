package seatblocks

import (
	"time"

	"tripstock/internal/holds"

	"github.com/google/uuid"
)

// CreateBlockRequest is the HTTP payload for POST /admin/capacities/:id/blocks
type CreateBlockRequest struct {
	SeatCount    int             `json:"seat_count" binding:"required"`
	BlockType    holds.BlockType `json:"block_type" binding:"required"`
	ChannelScope string          `json:"channel_scope,omitempty"`
	Until        *time.Time      `json:"until,omitempty"`
	Reference    string          `json:"reference,omitempty"`
}

func (r CreateBlockRequest) ToInput(tenantID, capacityID uuid.UUID) BlockInput {
	return BlockInput{
		TenantID:     tenantID,
		CapacityID:   capacityID,
		SeatCount:    r.SeatCount,
		BlockType:    r.BlockType,
		ChannelScope: r.ChannelScope,
		Until:        r.Until,
		Reference:    r.Reference,
	}
}
