package capacity

// Snapshot is the derived availability of a capacity record at one instant.
type Snapshot struct {
	SellableCapacity int `json:"sellable_capacity"`
	MaxBookable      int `json:"max_bookable"`
	HeldSeats        int `json:"held_seats"`
	ConfirmedSeats   int `json:"confirmed_seats"`
	CommittedSeats   int `json:"committed_seats"`
	AvailableSeats   int `json:"available_seats"`
	BookableSeats    int `json:"bookable_seats"`
}

// ComputeAvailability derives a snapshot from the record and its committed seats.
// Blocked seats and the overbooking limit are read from c on every call since
// admin edits may change them between reads.
func ComputeAvailability(c Capacity, activeHoldSeats, confirmedSeats int) Snapshot {
	committed := activeHoldSeats + confirmedSeats
	return Snapshot{
		SellableCapacity: c.SellableCapacity(),
		MaxBookable:      c.MaxBookable(),
		HeldSeats:        activeHoldSeats,
		ConfirmedSeats:   confirmedSeats,
		CommittedSeats:   committed,
		AvailableSeats:   c.SellableCapacity() - committed,
		BookableSeats:    c.MaxBookable() - committed,
	}
}

// CanFit reports whether seatCount seats can still be committed.
func (s Snapshot) CanFit(seatCount int) bool {
	return seatCount >= 1 && seatCount <= s.BookableSeats
}

// RequiresOverbooking reports whether seatCount only fits by using the overbooking allowance.
func (s Snapshot) RequiresOverbooking(seatCount int) bool {
	return seatCount > s.AvailableSeats && seatCount <= s.BookableSeats
}

// After returns the snapshot that results from committing seatCount more seats.
func (s Snapshot) After(seatCount int) Snapshot {
	s.HeldSeats += seatCount
	s.CommittedSeats += seatCount
	s.AvailableSeats -= seatCount
	s.BookableSeats -= seatCount
	return s
}
