package holds

import (
	"fmt"

	"tripstock/internal/shared/errs"
)

var (
	// ErrHoldTerminal is returned when confirming a hold that already reached a terminal state.
	ErrHoldTerminal = fmt.Errorf("%w: hold is no longer active", errs.ErrValidation)

	// ErrHoldExpired is returned when confirming a hold whose expiry has passed.
	ErrHoldExpired = fmt.Errorf("%w: hold has expired", errs.ErrValidation)

	// ErrSaleClosed is returned when the capacity record does not accept new holds.
	ErrSaleClosed = fmt.Errorf("%w: sale is closed", errs.ErrValidation)
)
