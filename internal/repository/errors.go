package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrCheckViolation reports a rejected CHECK constraint, e.g. sold > capacity.
	ErrCheckViolation = errors.New("check constraint violated")
	// ErrNoCapacity is returned by a conditional reserve that matched the tier but not the
	// capacity predicate.
	ErrNoCapacity = errors.New("not enough capacity")
	// ErrStatusMismatch is returned by a conditional status write whose expected current
	// status no longer holds.
	ErrStatusMismatch = errors.New("status mismatch")
	ErrInvalidID      = errors.New("invalid id")
)
