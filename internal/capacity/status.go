package capacity

import (
	"time"

	"tripstock/internal/shared/errs"
)

// DefaultFewLeftRatio is the available/sellable ratio below which a record shows FEW_LEFT.
const DefaultFewLeftRatio = 0.20

// StatusFacts are the time-dependent inputs of the status engine.
type StatusFacts struct {
	Now             time.Time
	DepartureAt     time.Time
	CutoffAt        *time.Time
	SaleOpensAt     *time.Time
	WaitlistEnabled bool
	FewLeftRatio    float64
}

// FactsFor collects the facts of c as seen at now.
func FactsFor(c Capacity, now time.Time) StatusFacts {
	return StatusFacts{
		Now:             now,
		DepartureAt:     c.DepartureAt(),
		CutoffAt:        c.CutoffAt,
		SaleOpensAt:     c.SaleOpensAt,
		WaitlistEnabled: c.WaitlistEnabled,
		FewLeftRatio:    DefaultFewLeftRatio,
	}
}

// DeriveStatus computes the status a record should carry. It is pure and
// idempotent: feeding its output back in with the same snapshot and facts
// returns the same status.
func DeriveStatus(current Status, snap Snapshot, facts StatusFacts) Status {
	if current.IsFinal() {
		return current
	}
	if !facts.Now.Before(facts.DepartureAt) {
		return StatusDeparted
	}
	if current == StatusClosed {
		return StatusClosed
	}
	if facts.CutoffAt != nil && facts.Now.After(*facts.CutoffAt) {
		return StatusClosed
	}
	if current == StatusScheduled {
		if facts.SaleOpensAt == nil || facts.Now.Before(*facts.SaleOpensAt) {
			return StatusScheduled
		}
	}
	return seatStatus(snap, facts)
}

func seatStatus(snap Snapshot, facts StatusFacts) Status {
	if snap.AvailableSeats <= 0 {
		if snap.BookableSeats <= 0 && facts.WaitlistEnabled {
			return StatusWaitlist
		}
		return StatusFull
	}

	ratio := facts.FewLeftRatio
	if ratio <= 0 {
		ratio = DefaultFewLeftRatio
	}
	if snap.SellableCapacity > 0 && float64(snap.AvailableSeats)/float64(snap.SellableCapacity) < ratio {
		return StatusFewLeft
	}
	return StatusOpen
}

// OpenSale moves a SCHEDULED record onto the seat rules.
func OpenSale(current Status, snap Snapshot, facts StatusFacts) (Status, error) {
	if current != StatusScheduled {
		return current, errs.Validationf("sale can only be opened from %s, record is %s", StatusScheduled, current)
	}
	opened := DeriveStatus(StatusOpen, snap, facts)
	return opened, nil
}

// Cancel is the only transition into CANCELLED. Cancelling twice is a no-op.
func Cancel(current Status) (Status, error) {
	switch current {
	case StatusCancelled:
		return StatusCancelled, nil
	case StatusDeparted:
		return current, errs.Validationf("capacity record has already departed")
	}
	return StatusCancelled, nil
}
