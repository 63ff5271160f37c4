package capacity

import (
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// CreateInput is the validated input of Service.Create
type CreateInput struct {
	TenantID         uuid.UUID `validate:"required"`
	ResourceID       uuid.UUID `validate:"required"`
	SaleDate         time.Time
	EndDate          *time.Time
	TimeOfDay        string `validate:"omitempty,datetime=15:04"`
	TotalCapacity    int    `validate:"min=1"`
	BlockedSeats     int    `validate:"min=0,ltfield=TotalCapacity"`
	OverbookingLimit int    `validate:"min=0"`
	MinParticipants  int    `validate:"min=0"`
	CutoffAt         *time.Time
	SaleOpensAt      *time.Time
	WaitlistEnabled  bool
	IsGuaranteed     bool
}

// UpdateInput is an admin edit; nil fields are left unchanged
type UpdateInput struct {
	TotalCapacity    *int       `json:"total_capacity,omitempty" validate:"omitempty,min=1"`
	BlockedSeats     *int       `json:"blocked_seats,omitempty" validate:"omitempty,min=0"`
	OverbookingLimit *int       `json:"overbooking_limit,omitempty" validate:"omitempty,min=0"`
	MinParticipants  *int       `json:"min_participants,omitempty" validate:"omitempty,min=0"`
	CutoffAt         *time.Time `json:"cutoff_at,omitempty"`
	WaitlistEnabled  *bool      `json:"waitlist_enabled,omitempty"`
	IsGuaranteed     *bool      `json:"is_guaranteed,omitempty"`
}

// CreateCapacityRequest is the HTTP payload for scheduling a date instance
type CreateCapacityRequest struct {
	ResourceID       uuid.UUID  `json:"resource_id" binding:"required"`
	SaleDate         string     `json:"sale_date" binding:"required"`
	EndDate          string     `json:"end_date,omitempty"`
	TimeOfDay        string     `json:"time_of_day,omitempty"`
	TotalCapacity    int        `json:"total_capacity" binding:"required"`
	BlockedSeats     int        `json:"blocked_seats"`
	OverbookingLimit int        `json:"overbooking_limit"`
	MinParticipants  int        `json:"min_participants"`
	CutoffAt         *time.Time `json:"cutoff_at,omitempty"`
	SaleOpensAt      *time.Time `json:"sale_opens_at,omitempty"`
	WaitlistEnabled  bool       `json:"waitlist_enabled"`
	IsGuaranteed     bool       `json:"is_guaranteed"`
}

// ToInput parses the request dates and builds the service input
func (r CreateCapacityRequest) ToInput(tenantID uuid.UUID) (CreateInput, error) {
	saleDate, err := time.Parse(dateLayout, r.SaleDate)
	if err != nil {
		return CreateInput{}, err
	}

	in := CreateInput{
		TenantID:         tenantID,
		ResourceID:       r.ResourceID,
		SaleDate:         saleDate,
		TimeOfDay:        r.TimeOfDay,
		TotalCapacity:    r.TotalCapacity,
		BlockedSeats:     r.BlockedSeats,
		OverbookingLimit: r.OverbookingLimit,
		MinParticipants:  r.MinParticipants,
		CutoffAt:         r.CutoffAt,
		SaleOpensAt:      r.SaleOpensAt,
		WaitlistEnabled:  r.WaitlistEnabled,
		IsGuaranteed:     r.IsGuaranteed,
	}
	if r.EndDate != "" {
		endDate, err := time.Parse(dateLayout, r.EndDate)
		if err != nil {
			return CreateInput{}, err
		}
		in.EndDate = &endDate
	}
	return in, nil
}
