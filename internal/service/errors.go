package service

import (
	"errors"
	"fmt"
)

// Typed circulation errors. NotFound errors mean a referenced record is
// absent; Conflict errors are business-rule refusals, not system failures.
// The API layer maps these onto HTTP status codes; they are never shown to
// clients verbatim.
var (
	// ErrNotFound is the generic form of the entity-specific not found errors.
	ErrNotFound = errors.New("not found")

	// ErrTitleNotFound is returned when the requested title does not exist.
	ErrTitleNotFound = fmt.Errorf("%w: title", ErrNotFound)

	// ErrBorrowerNotFound is returned when the requested borrower does not exist.
	ErrBorrowerNotFound = fmt.Errorf("%w: borrower", ErrNotFound)

	// ErrLoanNotFound is returned when the requested loan does not exist.
	ErrLoanNotFound = fmt.Errorf("%w: loan", ErrNotFound)

	// ErrConflict is the generic form of the business-rule conflict errors.
	ErrConflict = errors.New("conflict")

	// ErrOutOfStock is returned when a borrow finds no available copies.
	ErrOutOfStock = fmt.Errorf("%w: title out of stock", ErrConflict)

	// ErrAlreadyBorrowed is returned when the borrower already holds an
	// active loan for the title.
	ErrAlreadyBorrowed = fmt.Errorf("%w: title already borrowed", ErrConflict)

	// ErrAlreadyReturned is returned when the loan has already been finalized.
	ErrAlreadyReturned = fmt.Errorf("%w: loan already returned", ErrConflict)

	// ErrBorrowerUnverified is returned when the borrower exists but has not
	// completed verification with the identity provider.
	ErrBorrowerUnverified = errors.New("borrower is not verified")
)

// IsNotFound checks if the error is any kind of "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is any kind of business-rule conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// CirculationError is a custom error type for circulation service errors.
type CirculationError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for CirculationError.
func (e *CirculationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("circulation %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("circulation %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *CirculationError) Unwrap() error {
	return e.Err
}

// NewCirculationError creates a new CirculationError.
func NewCirculationError(operation, message string, err error) *CirculationError {
	return &CirculationError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
