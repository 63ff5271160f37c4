package holds

import (
	"time"

	"github.com/google/uuid"
)

// AcquireInput describes a hold request. TenantID scopes the capacity lookup
// when set.
type AcquireInput struct {
	TenantID     uuid.UUID
	CapacityID   uuid.UUID `validate:"required"`
	SeatCount    int       `validate:"min=1"`
	HoldType     HoldType  `validate:"required"`
	Source       Source    `validate:"required"`
	Reference    string    `validate:"max=255"`
	ExpiresAt    *time.Time
	BlockType    *BlockType
	ChannelScope *string
}

// AcquireHoldRequest is the HTTP payload for POST /holds
type AcquireHoldRequest struct {
	CapacityID uuid.UUID  `json:"capacity_id" binding:"required"`
	SeatCount  int        `json:"seat_count" binding:"required"`
	HoldType   HoldType   `json:"hold_type" binding:"required"`
	Source     Source     `json:"source"`
	Reference  string     `json:"reference,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// ToInput applies the tenant and the default source
func (r AcquireHoldRequest) ToInput(tenantID uuid.UUID) AcquireInput {
	source := r.Source
	if source == "" {
		source = SourceWebsite
	}
	return AcquireInput{
		TenantID:   tenantID,
		CapacityID: r.CapacityID,
		SeatCount:  r.SeatCount,
		HoldType:   r.HoldType,
		Source:     source,
		Reference:  r.Reference,
		ExpiresAt:  r.ExpiresAt,
	}
}

// ConfirmHoldRequest carries the booking the hold is converted into
type ConfirmHoldRequest struct {
	BookingID uuid.UUID `json:"booking_id" binding:"required"`
}

// ReleaseHoldRequest is the optional body of DELETE /holds/:id
type ReleaseHoldRequest struct {
	Reason ReleaseReason `json:"reason,omitempty" binding:"omitempty,oneof=CANCELLED MANUAL"`
}
