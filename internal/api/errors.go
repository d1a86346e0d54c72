package api

import (
	"errors"
	"net/http"

	"github.com/bookworm/library-api/internal/service"
	"github.com/bookworm/library-api/internal/service/auth"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrBorrowerUnverified):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound

	// Business-rule conflicts
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message based
// on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	// Authorization errors
	case errors.Is(err, service.ErrBorrowerUnverified):
		return "Account not verified"

	// Not found errors
	case errors.Is(err, service.ErrTitleNotFound):
		return "Title not found"

	case errors.Is(err, service.ErrBorrowerNotFound):
		return "Borrower not found"

	case errors.Is(err, service.ErrLoanNotFound):
		return "Loan not found"

	// Business-rule conflicts
	case errors.Is(err, service.ErrOutOfStock):
		return "No copies available"

	case errors.Is(err, service.ErrAlreadyBorrowed):
		return "You already hold a copy of this title"

	case errors.Is(err, service.ErrAlreadyReturned):
		return "Loan already returned"

	default:
		return "An unexpected error occurred"
	}
}
