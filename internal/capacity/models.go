package capacity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status represents the sale-facing status of a capacity record
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusOpen      Status = "OPEN"
	StatusFewLeft   Status = "FEW_LEFT"
	StatusFull      Status = "FULL"
	StatusWaitlist  Status = "WAITLIST"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
	StatusDeparted  Status = "DEPARTED"
)

// IsValid checks if the status is one of the known values
func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusOpen, StatusFewLeft, StatusFull, StatusWaitlist,
		StatusClosed, StatusCancelled, StatusDeparted:
		return true
	}
	return false
}

// IsFinal reports whether no further transition is possible.
func (s Status) IsFinal() bool {
	return s == StatusCancelled || s == StatusDeparted
}

// IsSaleClosed reports whether new holds must be rejected.
func (s Status) IsSaleClosed() bool {
	return s == StatusClosed || s.IsFinal()
}

// Capacity is the seat inventory of one sellable date instance of a resource.
type Capacity struct {
	ID               uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID         uuid.UUID  `json:"tenant_id" gorm:"type:uuid;not null;index:idx_capacity_tenant_date"`
	ResourceID       uuid.UUID  `json:"resource_id" gorm:"type:uuid;not null;index"`
	SaleDate         time.Time  `json:"sale_date" gorm:"type:date;not null;index:idx_capacity_tenant_date"`
	EndDate          *time.Time `json:"end_date,omitempty" gorm:"type:date"`
	TimeOfDay        string     `json:"time_of_day,omitempty" gorm:"type:varchar(5)"`
	TotalCapacity    int        `json:"total_capacity" gorm:"not null"`
	BlockedSeats     int        `json:"blocked_seats" gorm:"not null;default:0"`
	OverbookingLimit int        `json:"overbooking_limit" gorm:"not null;default:0"`
	MinParticipants  int        `json:"min_participants" gorm:"not null;default:0"`
	ConfirmedSeats   int        `json:"confirmed_seats" gorm:"not null;default:0"`
	CutoffAt         *time.Time `json:"cutoff_at,omitempty"`
	SaleOpensAt      *time.Time `json:"sale_opens_at,omitempty"`
	WaitlistEnabled  bool       `json:"waitlist_enabled" gorm:"not null;default:false"`
	IsGuaranteed     bool       `json:"is_guaranteed" gorm:"not null;default:false"`
	Status           Status     `json:"status" gorm:"type:varchar(20);not null;index"`
	Version          int64      `json:"version" gorm:"not null;default:1"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName pins the table name used by raw availability queries
func (Capacity) TableName() string {
	return "capacities"
}

// BeforeCreate assigns an ID when the caller did not
func (c *Capacity) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// SellableCapacity is the nominal number of seats offered for sale.
func (c Capacity) SellableCapacity() int {
	return c.TotalCapacity - c.BlockedSeats
}

// MaxBookable adds the overbooking allowance to the sellable seats.
func (c Capacity) MaxBookable() int {
	return c.SellableCapacity() + c.OverbookingLimit
}

// DepartureAt combines the sale date with the optional time of day, in UTC.
func (c Capacity) DepartureAt() time.Time {
	d := c.SaleDate.UTC()
	base := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	if c.TimeOfDay == "" {
		// date-only instances depart at the end of the day
		return base.Add(24 * time.Hour)
	}
	t, err := time.Parse("15:04", c.TimeOfDay)
	if err != nil {
		return base.Add(24 * time.Hour)
	}
	return base.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}

// WithStatus returns a copy carrying the new status.
func (c Capacity) WithStatus(s Status) Capacity {
	c.Status = s
	return c
}

// WithAdminEdit returns a copy with the edited numbers applied.
func (c Capacity) WithAdminEdit(in UpdateInput) Capacity {
	if in.TotalCapacity != nil {
		c.TotalCapacity = *in.TotalCapacity
	}
	if in.BlockedSeats != nil {
		c.BlockedSeats = *in.BlockedSeats
	}
	if in.OverbookingLimit != nil {
		c.OverbookingLimit = *in.OverbookingLimit
	}
	if in.MinParticipants != nil {
		c.MinParticipants = *in.MinParticipants
	}
	if in.CutoffAt != nil {
		cutoff := in.CutoffAt.UTC()
		c.CutoffAt = &cutoff
	}
	if in.WaitlistEnabled != nil {
		c.WaitlistEnabled = *in.WaitlistEnabled
	}
	if in.IsGuaranteed != nil {
		c.IsGuaranteed = *in.IsGuaranteed
	}
	return c
}

// validateNumbers checks the capacity invariants that every stored record must satisfy.
func (c Capacity) validateNumbers() error {
	if c.TotalCapacity < 1 {
		return fmt.Errorf("total_capacity must be at least 1, got %d", c.TotalCapacity)
	}
	if c.BlockedSeats < 0 || c.BlockedSeats >= c.TotalCapacity {
		return fmt.Errorf("blocked_seats must be between 0 and total_capacity-1, got %d", c.BlockedSeats)
	}
	if c.OverbookingLimit < 0 {
		return fmt.Errorf("overbooking_limit must not be negative, got %d", c.OverbookingLimit)
	}
	if c.MinParticipants < 0 {
		return fmt.Errorf("min_participants must not be negative, got %d", c.MinParticipants)
	}
	return nil
}

// CalendarFilter selects capacity records for calendar views
type CalendarFilter struct {
	TenantID   uuid.UUID
	ResourceID *uuid.UUID
	From       time.Time
	To         time.Time
	Statuses   []Status // matched against the derived status
	Page       int
	Limit      int
}
