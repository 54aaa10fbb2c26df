package booking

import (
	"errors"
	"fmt"

	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/service/inventory"
)

var (
	ErrValidation          = errors.New("invalid booking input")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrUnauthorized        = errors.New("operator role required")
	ErrDuplicatePaymentRef = errors.New("payment reference already used")
	// ErrConcurrentUpdate reports a status write that lost a race. SetStatus re-reads and
	// decides again, so callers only see it when the booking keeps changing underneath.
	ErrConcurrentUpdate = errors.New("booking status changed concurrently")

	// ErrSoldOut and ErrTierNotFound are the ledger's outcomes, passed through unchanged.
	ErrSoldOut      = inventory.ErrSoldOut
	ErrTierNotFound = inventory.ErrTierNotFound
)

// ValidationError names the offending input field. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e ValidationError) Unwrap() error {
	return ErrValidation
}

// InvalidTransitionError reports a lifecycle event the current status does not accept.
// It matches ErrInvalidTransition.
type InvalidTransitionError struct {
	From domain.BookingStatus
	To   domain.BookingStatus
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move booking from %s to %s", e.From, e.To)
}

func (e InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
