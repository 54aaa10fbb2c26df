package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid catalog input")
	ErrEventNotFound     = errors.New("event not configured")
	ErrTierNotFound      = errors.New("tier not found")
	ErrTierConflict      = errors.New("tier with this name already exists")
	ErrCapacityBelowSold = errors.New("capacity below units already sold")
)

// InputError names the offending field. It matches ErrInvalidInput.
type InputError struct {
	Field  string
	Reason string
}

func (e InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e InputError) Unwrap() error {
	return ErrInvalidInput
}
