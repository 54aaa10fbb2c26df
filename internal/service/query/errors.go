package query

import (
	"errors"
)

var (
	ErrEventNotFound = errors.New("event not configured")
	ErrTierNotFound  = errors.New("tier not found")
	ErrInvalidFilter = errors.New("unknown booking status filter")
)
