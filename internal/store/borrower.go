package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/bookworm/library-api/internal/domain"
)

// BorrowerStore defines the read-only interface for borrower records.
//
// Borrowers are created and verified by the external identity provider;
// circulation only resolves them to check verification state and to snapshot
// name and contact details onto new loans.
type BorrowerStore interface {
	// GetByID retrieves a borrower by their unique ID.
	// Returns ErrBorrowerNotFound if the borrower does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Borrower, error)

	// GetByEmail retrieves a borrower by their email address.
	// Returns ErrBorrowerNotFound if the borrower does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.Borrower, error)

	// WithTx returns a new BorrowerStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) BorrowerStore
}
