package holds

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HoldType decides how long an unconfirmed hold lives
type HoldType string

const (
	HoldTypeCart            HoldType = "CART"
	HoldTypePaymentPending  HoldType = "PAYMENT_PENDING"
	HoldTypeApprovalPending HoldType = "APPROVAL_PENDING"
	HoldTypeSeatBlock       HoldType = "SEAT_BLOCK"
)

func (t HoldType) IsValid() bool {
	switch t {
	case HoldTypeCart, HoldTypePaymentPending, HoldTypeApprovalPending, HoldTypeSeatBlock:
		return true
	}
	return false
}

// Source records which channel created the hold
type Source string

const (
	SourceWebsite  Source = "WEBSITE"
	SourceAdmin    Source = "ADMIN"
	SourceChannel  Source = "CHANNEL"
	SourceManual   Source = "MANUAL"
	SourceWaitlist Source = "WAITLIST"
)

func (s Source) IsValid() bool {
	switch s {
	case SourceWebsite, SourceAdmin, SourceChannel, SourceManual, SourceWaitlist:
		return true
	}
	return false
}

// ReleaseReason is the terminal state of a hold
type ReleaseReason string

const (
	ReasonConfirmed ReleaseReason = "CONFIRMED"
	ReasonExpired   ReleaseReason = "EXPIRED"
	ReasonCancelled ReleaseReason = "CANCELLED"
	ReasonManual    ReleaseReason = "MANUAL"
)

func (r ReleaseReason) IsValid() bool {
	switch r {
	case ReasonConfirmed, ReasonExpired, ReasonCancelled, ReasonManual:
		return true
	}
	return false
}

// BlockType classifies seat blocks
type BlockType string

const (
	BlockTypeStaff        BlockType = "STAFF"
	BlockTypeVIP          BlockType = "VIP"
	BlockTypeChannelQuota BlockType = "CHANNEL_QUOTA"
	BlockTypeMaintenance  BlockType = "MAINTENANCE"
)

func (b BlockType) IsValid() bool {
	switch b {
	case BlockTypeStaff, BlockTypeVIP, BlockTypeChannelQuota, BlockTypeMaintenance:
		return true
	}
	return false
}

// State is the lifecycle position of a hold as seen at a given instant
type State string

const (
	StateActive State = "ACTIVE"
)

// Hold is a time-boxed claim on seats of one capacity record.
// Holds are never deleted; ReleasedAt and ReleaseReason are written once.
type Hold struct {
	ID            uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID      `json:"tenant_id" gorm:"type:uuid;not null;index"`
	CapacityID    uuid.UUID      `json:"capacity_id" gorm:"type:uuid;not null;index:idx_holds_capacity_active"`
	BookingID     *uuid.UUID     `json:"booking_id,omitempty" gorm:"type:uuid"`
	SeatCount     int            `json:"seat_count" gorm:"not null"`
	Source        Source         `json:"source" gorm:"type:varchar(20);not null"`
	HoldType      HoldType       `json:"hold_type" gorm:"type:varchar(20);not null"`
	BlockType     *BlockType     `json:"block_type,omitempty" gorm:"type:varchar(20)"`
	ChannelScope  *string        `json:"channel_scope,omitempty" gorm:"type:varchar(100)"`
	Reference     string         `json:"reference,omitempty" gorm:"type:varchar(255)"`
	ExpiresAt     time.Time      `json:"expires_at" gorm:"not null;index:idx_holds_capacity_active;index:idx_holds_expiry"`
	ReleasedAt    *time.Time     `json:"released_at,omitempty" gorm:"index:idx_holds_expiry"`
	ReleaseReason *ReleaseReason `json:"release_reason,omitempty" gorm:"type:varchar(20)"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (Hold) TableName() string {
	return "holds"
}

// BeforeCreate assigns an ID when the caller did not
func (h *Hold) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the hold still counts against capacity at now.
func (h Hold) IsActive(now time.Time) bool {
	return h.ReleasedAt == nil && h.ExpiresAt.After(now)
}

// State returns the terminal reason, EXPIRED for a lapsed but unswept hold, or ACTIVE.
func (h Hold) State(now time.Time) State {
	if h.ReleaseReason != nil {
		return State(*h.ReleaseReason)
	}
	if !h.ExpiresAt.After(now) {
		return State(ReasonExpired)
	}
	return StateActive
}
