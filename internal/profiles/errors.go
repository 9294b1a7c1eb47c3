package profiles

import "errors"

var (
	// ErrNotFound indicates no profile row exists for the user.
	ErrNotFound = errors.New("profile not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyOnboarded indicates onboarding was completed earlier.
	ErrAlreadyOnboarded = errors.New("onboarding already completed")
)
