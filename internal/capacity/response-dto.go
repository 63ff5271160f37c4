package capacity

import (
	"time"

	"github.com/google/uuid"
)

// CapacityResponse flattens a record and its availability for API clients
type CapacityResponse struct {
	ID               uuid.UUID  `json:"id"`
	TenantID         uuid.UUID  `json:"tenant_id"`
	ResourceID       uuid.UUID  `json:"resource_id"`
	SaleDate         string     `json:"sale_date"`
	EndDate          *string    `json:"end_date,omitempty"`
	TimeOfDay        string     `json:"time_of_day,omitempty"`
	DepartureAt      time.Time  `json:"departure_at"`
	TotalCapacity    int        `json:"total_capacity"`
	BlockedSeats     int        `json:"blocked_seats"`
	OverbookingLimit int        `json:"overbooking_limit"`
	MinParticipants  int        `json:"min_participants"`
	CutoffAt         *time.Time `json:"cutoff_at,omitempty"`
	SaleOpensAt      *time.Time `json:"sale_opens_at,omitempty"`
	WaitlistEnabled  bool       `json:"waitlist_enabled"`
	IsGuaranteed     bool       `json:"is_guaranteed"`
	Status           Status     `json:"status"`
	Version          int64      `json:"version"`
	Availability     Snapshot   `json:"availability"`
}

// CalendarResponse is a page of capacity records
type CalendarResponse struct {
	Items []CapacityResponse `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// AvailabilityResponse answers a quote for a seat count
type AvailabilityResponse struct {
	CapacityID          uuid.UUID `json:"capacity_id"`
	Seats               int       `json:"seats"`
	Available           bool      `json:"available"`
	AvailableSeats      int       `json:"available_seats"`
	BookableSeats       int       `json:"bookable_seats"`
	RequiresOverbooking bool      `json:"requires_overbooking"`
	Status              Status    `json:"status"`
}

func ToCapacityResponse(v CapacityWithAvailability) CapacityResponse {
	c := v.Capacity
	resp := CapacityResponse{
		ID:               c.ID,
		TenantID:         c.TenantID,
		ResourceID:       c.ResourceID,
		SaleDate:         c.SaleDate.Format(dateLayout),
		TimeOfDay:        c.TimeOfDay,
		DepartureAt:      c.DepartureAt(),
		TotalCapacity:    c.TotalCapacity,
		BlockedSeats:     c.BlockedSeats,
		OverbookingLimit: c.OverbookingLimit,
		MinParticipants:  c.MinParticipants,
		CutoffAt:         c.CutoffAt,
		SaleOpensAt:      c.SaleOpensAt,
		WaitlistEnabled:  c.WaitlistEnabled,
		IsGuaranteed:     c.IsGuaranteed,
		Status:           c.Status,
		Version:          c.Version,
		Availability:     v.Availability,
	}
	if c.EndDate != nil {
		end := c.EndDate.Format(dateLayout)
		resp.EndDate = &end
	}
	return resp
}

func ToCalendarResponse(page *CalendarPage) CalendarResponse {
	items := make([]CapacityResponse, len(page.Items))
	for i, item := range page.Items {
		items[i] = ToCapacityResponse(item)
	}
	return CalendarResponse{Items: items, Total: page.Total, Page: page.Page, Limit: page.Limit}
}
