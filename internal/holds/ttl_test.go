package holds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTTLTable(t *testing.T) {
	table := DefaultTTLTable()

	cart, ok := table.Lookup(HoldTypeCart)
	require.True(t, ok)
	assert.Equal(t, 15*time.Minute, cart)

	approval, ok := table.Lookup(HoldTypeApprovalPending)
	require.True(t, ok)
	assert.Equal(t, 24*time.Hour, approval)

	_, ok = table.Lookup(HoldTypeSeatBlock)
	assert.False(t, ok)
}

func TestNewTTLTable_Overrides(t *testing.T) {
	table, err := NewTTLTable(map[string]time.Duration{"PAYMENT_PENDING": 5 * time.Minute})
	require.NoError(t, err)

	payment, _ := table.Lookup(HoldTypePaymentPending)
	assert.Equal(t, 5*time.Minute, payment)
	cart, _ := table.Lookup(HoldTypeCart)
	assert.Equal(t, 15*time.Minute, cart)

	// defaults are untouched by an override
	assert.Equal(t, 30*time.Minute, DefaultTTLs[HoldTypePaymentPending])
}

func TestNewTTLTable_Rejects(t *testing.T) {
	tests := map[string]map[string]time.Duration{
		"seat block":    {"SEAT_BLOCK": time.Hour},
		"unknown type":  {"LAYAWAY": time.Hour},
		"zero duration": {"CART": 0},
	}
	for name, overrides := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewTTLTable(overrides)
			assert.Error(t, err)
		})
	}
}

func TestHold_State(t *testing.T) {
	now := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	h := Hold{ExpiresAt: now.Add(time.Minute)}
	assert.Equal(t, StateActive, h.State(now))
	assert.True(t, h.IsActive(now))

	assert.Equal(t, State(ReasonExpired), h.State(now.Add(time.Minute)))
	assert.False(t, h.IsActive(now.Add(time.Minute)))

	reason := ReasonConfirmed
	h.ReleasedAt = &now
	h.ReleaseReason = &reason
	assert.Equal(t, State(ReasonConfirmed), h.State(now))
	assert.False(t, h.IsActive(now))
}
