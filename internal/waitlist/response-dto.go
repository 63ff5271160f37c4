package waitlist

import (
	"time"

	"github.com/google/uuid"
)

type WaitlistResponse struct {
	ID         uuid.UUID  `json:"id"`
	CapacityID uuid.UUID  `json:"capacity_id"`
	Position   int64      `json:"position,omitempty"`
	Quantity   int        `json:"quantity"`
	Status     Status     `json:"status"`
	Source     string     `json:"source"`
	Reference  string     `json:"reference,omitempty"`
	HoldID     *uuid.UUID `json:"hold_id,omitempty"`
	JoinedAt   time.Time  `json:"joined_at"`
	PromotedAt *time.Time `json:"promoted_at,omitempty"`
}

func ToWaitlistResponse(e Entry, position int64) WaitlistResponse {
	return WaitlistResponse{
		ID:         e.ID,
		CapacityID: e.CapacityID,
		Position:   position,
		Quantity:   e.Quantity,
		Status:     e.Status,
		Source:     e.Source,
		Reference:  e.Reference,
		HoldID:     e.HoldID,
		JoinedAt:   e.JoinedAt,
		PromotedAt: e.PromotedAt,
	}
}

func ToWaitlistResponses(entries []Entry) []WaitlistResponse {
	out := make([]WaitlistResponse, len(entries))
	for i, e := range entries {
		out[i] = ToWaitlistResponse(e, 0)
	}
	return out
}
