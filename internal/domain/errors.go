package domain

import "errors"

// Common domain errors shared across entities. Entity-specific validation
// errors live next to their entity.
var (
	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email format")
)
