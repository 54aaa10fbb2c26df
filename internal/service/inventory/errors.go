package inventory

import "errors"

var (
	// ErrSoldOut is an expected outcome: the tier cannot take the requested quantity.
	ErrSoldOut       = errors.New("tier sold out")
	ErrTierNotFound  = errors.New("tier not found")
	ErrInvalidAmount = errors.New("quantity must be positive")
)
