package holds

import (
	"time"

	"tripstock/internal/capacity"

	"github.com/google/uuid"
)

// HoldResponse is a hold with its state at response time
type HoldResponse struct {
	ID            uuid.UUID      `json:"id"`
	CapacityID    uuid.UUID      `json:"capacity_id"`
	BookingID     *uuid.UUID     `json:"booking_id,omitempty"`
	SeatCount     int            `json:"seat_count"`
	Source        Source         `json:"source"`
	HoldType      HoldType       `json:"hold_type"`
	BlockType     *BlockType     `json:"block_type,omitempty"`
	ChannelScope  *string        `json:"channel_scope,omitempty"`
	Reference     string         `json:"reference,omitempty"`
	State         State          `json:"state"`
	ExpiresAt     time.Time      `json:"expires_at"`
	ReleasedAt    *time.Time     `json:"released_at,omitempty"`
	ReleaseReason *ReleaseReason `json:"release_reason,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// AcquireResponse is returned by POST /holds
type AcquireResponse struct {
	Hold                HoldResponse      `json:"hold"`
	Availability        capacity.Snapshot `json:"availability"`
	Status              capacity.Status   `json:"status"`
	RequiresOverbooking bool              `json:"requires_overbooking"`
}

func ToHoldResponse(h Hold, now time.Time) HoldResponse {
	return HoldResponse{
		ID:            h.ID,
		CapacityID:    h.CapacityID,
		BookingID:     h.BookingID,
		SeatCount:     h.SeatCount,
		Source:        h.Source,
		HoldType:      h.HoldType,
		BlockType:     h.BlockType,
		ChannelScope:  h.ChannelScope,
		Reference:     h.Reference,
		State:         h.State(now),
		ExpiresAt:     h.ExpiresAt,
		ReleasedAt:    h.ReleasedAt,
		ReleaseReason: h.ReleaseReason,
		CreatedAt:     h.CreatedAt,
	}
}

func ToHoldResponses(holds []Hold, now time.Time) []HoldResponse {
	out := make([]HoldResponse, len(holds))
	for i, h := range holds {
		out[i] = ToHoldResponse(h, now)
	}
	return out
}

func ToAcquireResponse(r AcquireResult, now time.Time) AcquireResponse {
	return AcquireResponse{
		Hold:                ToHoldResponse(r.Hold, now),
		Availability:        r.Availability,
		Status:              r.Status,
		RequiresOverbooking: r.RequiresOverbooking,
	}
}

func ToAvailabilityResponse(r AvailabilityResult) capacity.AvailabilityResponse {
	return capacity.AvailabilityResponse{
		CapacityID:          r.CapacityID,
		Seats:               r.Seats,
		Available:           r.Available,
		AvailableSeats:      r.AvailableSeats,
		BookableSeats:       r.BookableSeats,
		RequiresOverbooking: r.RequiresOverbooking,
		Status:              r.Status,
	}
}
