package summaries

import "errors"

var (
	// ErrNotFound indicates no summary row matches the owner and id.
	ErrNotFound = errors.New("summary not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")
)
