package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Borrower-specific validation errors
var (
	// ErrBorrowerIDEmpty is returned when a borrower ID is empty or nil.
	ErrBorrowerIDEmpty = errors.New("borrower ID cannot be empty")

	// ErrBorrowerNameEmpty is returned when a borrower's name is empty.
	ErrBorrowerNameEmpty = errors.New("borrower name cannot be empty")

	// ErrBorrowerEmailEmpty is returned when a borrower's email is empty.
	ErrBorrowerEmailEmpty = errors.New("borrower email cannot be empty")

	// ErrBorrowerRoleInvalid is returned when a borrower's role is not recognized.
	ErrBorrowerRoleInvalid = errors.New("borrower role must be 'user' or 'admin'")
)

// Role identifies the access level of a borrower.
type Role string

// Possible borrower roles.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Borrower represents a library member as known to the circulation system.
// Registration, verification and credential management are owned by the
// external identity provider; circulation treats this record as read-only
// and only cares about identity, contact details and the Verified flag.
type Borrower struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks if the Borrower has valid data.
// Returns an error if any field fails validation.
func (b *Borrower) Validate() error {
	if b.ID == uuid.Nil {
		return ErrBorrowerIDEmpty
	}

	if b.Name == "" {
		return ErrBorrowerNameEmpty
	}

	if b.Email == "" {
		return ErrBorrowerEmailEmpty
	}

	if !validEmailFormat(b.Email) {
		return ErrInvalidEmail
	}

	if b.Role != RoleUser && b.Role != RoleAdmin {
		return ErrBorrowerRoleInvalid
	}

	return nil
}

// IsAdmin reports whether the borrower holds the admin role.
func (b *Borrower) IsAdmin() bool {
	return b.Role == RoleAdmin
}

// validEmailFormat performs basic validation of email format.
// Returns true if the email appears to be in a valid format.
func validEmailFormat(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}
