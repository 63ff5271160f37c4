package publisher

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names an inventory change
type EventType string

const (
	EventHoldAcquired     EventType = "HOLD_ACQUIRED"
	EventHoldConfirmed    EventType = "HOLD_CONFIRMED"
	EventHoldReleased     EventType = "HOLD_RELEASED"
	EventStatusChanged    EventType = "CAPACITY_STATUS_CHANGED"
	EventCapacityCreated  EventType = "CAPACITY_CREATED"
	EventCapacityUpdated  EventType = "CAPACITY_UPDATED"
	EventWaitlistPromoted EventType = "WAITLIST_PROMOTED"
)

// Event is the message written to the inventory topic. Consumers such as
// booking or notification services key on CapacityID.
type Event struct {
	ID         uuid.UUID              `json:"id"`
	Type       EventType              `json:"type"`
	TenantID   uuid.UUID              `json:"tenant_id"`
	CapacityID uuid.UUID              `json:"capacity_id"`
	HoldID     *uuid.UUID             `json:"hold_id,omitempty"`
	Seats      int                    `json:"seats,omitempty"`
	Status     string                 `json:"status,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	Version    int64                  `json:"version"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// NewEvent builds an event with a fresh ID
func NewEvent(eventType EventType, tenantID, capacityID uuid.UUID, version int64, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		TenantID:   tenantID,
		CapacityID: capacityID,
		Version:    version,
		OccurredAt: at,
	}
}

// WithHold attaches the hold and seat count
func (e Event) WithHold(holdID uuid.UUID, seats int) Event {
	e.HoldID = &holdID
	e.Seats = seats
	return e
}

// ToJSON serializes the event
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PartitionKey keeps all events of one capacity record in order
func (e Event) PartitionKey() string {
	return e.CapacityID.String()
}
