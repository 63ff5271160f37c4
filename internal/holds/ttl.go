package holds

import (
	"fmt"
	"time"
)

// TTLTable maps hold types to their lifetime. It is built once and never mutated.
type TTLTable struct {
	ttls map[HoldType]time.Duration
}

// DefaultTTLs are the stock hold lifetimes
var DefaultTTLs = map[HoldType]time.Duration{
	HoldTypeCart:            15 * time.Minute,
	HoldTypePaymentPending:  30 * time.Minute,
	HoldTypeApprovalPending: 1440 * time.Minute,
}

// NewTTLTable builds a table from the defaults plus overrides keyed by hold type name.
// SEAT_BLOCK cannot be overridden: blocks live until an explicit time or departure.
func NewTTLTable(overrides map[string]time.Duration) (TTLTable, error) {
	ttls := make(map[HoldType]time.Duration, len(DefaultTTLs))
	for k, v := range DefaultTTLs {
		ttls[k] = v
	}
	for name, d := range overrides {
		t := HoldType(name)
		if !t.IsValid() || t == HoldTypeSeatBlock {
			return TTLTable{}, fmt.Errorf("no TTL can be configured for hold type %q", name)
		}
		if d <= 0 {
			return TTLTable{}, fmt.Errorf("TTL for hold type %s must be positive", name)
		}
		ttls[t] = d
	}
	return TTLTable{ttls: ttls}, nil
}

// DefaultTTLTable returns the stock table
func DefaultTTLTable() TTLTable {
	table, _ := NewTTLTable(nil)
	return table
}

// Lookup returns the lifetime of t
func (tt TTLTable) Lookup(t HoldType) (time.Duration, bool) {
	d, ok := tt.ttls[t]
	return d, ok
}
