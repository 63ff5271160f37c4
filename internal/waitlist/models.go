package waitlist

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status represents the status of a waitlist entry
type Status string

const (
	StatusWaiting   Status = "WAITING"
	StatusPromoted  Status = "PROMOTED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

// IsValid checks if the waitlist status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusWaiting, StatusPromoted, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	validTransitions := map[Status][]Status{
		StatusWaiting:   {StatusPromoted, StatusCancelled, StatusExpired},
		StatusPromoted:  {}, // Terminal state
		StatusCancelled: {}, // Terminal state
		StatusExpired:   {}, // Terminal state
	}

	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Entry is a request for seats on a sold-out capacity record, served in Seq order.
type Entry struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID  `json:"tenant_id" gorm:"type:uuid;not null;index"`
	CapacityID uuid.UUID  `json:"capacity_id" gorm:"type:uuid;not null;uniqueIndex:idx_waitlist_capacity_seq"`
	Seq        int64      `json:"seq" gorm:"not null;uniqueIndex:idx_waitlist_capacity_seq"`
	Quantity   int        `json:"quantity" gorm:"not null"`
	Source     string     `json:"source" gorm:"type:varchar(20);not null"`
	Reference  string     `json:"reference,omitempty" gorm:"type:varchar(255)"`
	Status     Status     `json:"status" gorm:"type:varchar(20);not null;index"`
	HoldID     *uuid.UUID `json:"hold_id,omitempty" gorm:"type:uuid"`
	JoinedAt   time.Time  `json:"joined_at" gorm:"not null"`
	PromotedAt *time.Time `json:"promoted_at,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Entry) TableName() string {
	return "waitlist_entries"
}

// BeforeCreate assigns an ID when the caller did not
func (e *Entry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// IsWaiting returns true while the entry still queues for seats
func (e *Entry) IsWaiting() bool {
	return e.Status == StatusWaiting
}

// Configuration Constants

const (
	// MaxQuantityPerEntry is the largest party a single entry may ask for
	MaxQuantityPerEntry = 50

	// MaxWaitlistSize is the maximum number of waiting entries on one record
	MaxWaitlistSize = 10000

	// PromotionBatchSize is how many waiting entries one promotion pass loads
	PromotionBatchSize = 100
)

// LockKey returns the Redis key guarding a record's queue
func LockKey(capacityID uuid.UUID) string {
	return "tripstock:waitlist:lock:" + capacityID.String()
}
