// Package auth validates the bearer tokens issued by the external identity
// provider. Token issuance, refresh and revocation live with the provider;
// this service only needs the shared secret to check signatures and extract
// the borrower's identity and role.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bookworm/library-api/internal/domain"
)

// JWTService defines operations for handling JWT authentication tokens.
type JWTService interface {
	// ValidateToken validates the provided token string and extracts the claims.
	// Returns the claims containing the borrower's identity if the token is
	// valid, or an error if validation fails (expired, invalid signature, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)

	// GenerateToken creates a signed JWT for the given borrower ID and role.
	// Intended for tests and local tooling; production tokens come from the
	// identity provider, signed with the same shared secret.
	GenerateToken(ctx context.Context, borrowerID uuid.UUID, role domain.Role) (string, error)
}

// Claims represents the custom claims structure for the JWT tokens.
// It extends standard JWT registered claims with application-specific fields.
type Claims struct {
	// BorrowerID is the unique identifier of the borrower the token was issued for.
	BorrowerID uuid.UUID `json:"uid,omitempty"`

	// Role is the borrower's access level ("user" or "admin").
	Role domain.Role `json:"role,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
