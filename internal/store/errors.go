package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. This is the generic form of the entity-specific not found errors
	// (e.g. ErrTitleNotFound, ErrLoanNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// Entity-specific "not found" errors

	// ErrTitleNotFound indicates that the requested title does not exist in the store.
	ErrTitleNotFound = fmt.Errorf("%w: title", ErrNotFound)

	// ErrBorrowerNotFound indicates that the requested borrower does not exist in the store.
	ErrBorrowerNotFound = fmt.Errorf("%w: borrower", ErrNotFound)

	// ErrLoanNotFound indicates that the requested loan does not exist in the store.
	ErrLoanNotFound = fmt.Errorf("%w: loan", ErrNotFound)

	// Conditional-update failures on the inventory counter

	// ErrNoAvailableCopies indicates that a decrement was refused because the
	// title has no available copies left. The refusal comes from the store's
	// conditional update, not from an application-level read.
	ErrNoAvailableCopies = fmt.Errorf("%w: no available copies", ErrUpdateFailed)

	// ErrCopiesExceedTotal indicates that an increment was refused because it
	// would push available copies past the title's total.
	ErrCopiesExceedTotal = fmt.Errorf("%w: available copies would exceed total", ErrUpdateFailed)

	// Uniqueness-constraint failures

	// ErrActiveLoanExists indicates that the borrower already holds an active
	// loan for the title. Enforced by a partial unique index on the loans
	// table, so it is detected inside the same transaction as the insert.
	ErrActiveLoanExists = fmt.Errorf("%w: active loan for borrower and title", ErrDuplicate)

	// ErrLoanAlreadyReturned indicates that a return was refused because the
	// loan has already been finalized.
	ErrLoanAlreadyReturned = fmt.Errorf("%w: loan already returned", ErrUpdateFailed)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// This includes the generic ErrNotFound and all entity-specific variants.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "title", "loan")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
