package core

import "errors"

var (
	// ErrInvalidPeriod marks a malformed period identifier at the API or
	// storage boundary. User-correctable.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrNotFound marks a reference to an expense, income, goal or period
	// that does not exist.
	ErrNotFound = errors.New("not found")

	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyMerchant = errors.New("empty merchant name")
	ErrEmptyName     = errors.New("empty name")
)
