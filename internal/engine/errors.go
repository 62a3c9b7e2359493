package engine

import "errors"

var (
	// ErrWeekNotFound is fatal for a recompute unit: the target week row
	// does not exist and creation was not requested.
	ErrWeekNotFound = errors.New("weekly performance record not found")

	// ErrMalformedInput rejects out-of-range identifiers before any I/O.
	ErrMalformedInput = errors.New("malformed input")
)
