package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/bookworm/library-api/internal/domain"
)

// LoanStore defines the interface for circulation ledger persistence.
// Loans are append-only: they are created on borrow, finalized on return and
// flagged by the overdue notifier, but never deleted.
type LoanStore interface {
	// Create saves a new loan to the store.
	// Returns ErrActiveLoanExists if the borrower already holds an active loan
	// for the same title (enforced by a partial unique index, so the check is
	// part of the insert's transaction rather than a prior read).
	// Returns validation errors from the domain Loan if data is invalid.
	//
	// Must be run inside the same transaction as the inventory decrement; use
	// WithTx together with RunInTransaction.
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by its unique ID.
	// Returns ErrLoanNotFound if the loan does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// FinalizeReturn sets the loan's return date and fine in a single
	// conditional update guarded by "return date is still null".
	// Returns ErrLoanNotFound if the loan does not exist and
	// ErrLoanAlreadyReturned if it was already finalized, so concurrent
	// double returns resolve to exactly one success.
	FinalizeReturn(ctx context.Context, id uuid.UUID, returnDate time.Time, fine float64) error

	// ListActiveByBorrower retrieves the borrower's active loans,
	// newest first. Returns an empty slice if there are none.
	ListActiveByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]*domain.Loan, error)

	// ListAll retrieves every loan in the ledger, newest first.
	ListAll(ctx context.Context) ([]*domain.Loan, error)

	// FindOverdue retrieves active, unnotified loans whose due date lies
	// before the cutoff. Used by the overdue notifier's sweep.
	FindOverdue(ctx context.Context, cutoff time.Time) ([]*domain.Loan, error)

	// MarkNotified flags a loan as having had its overdue reminder sent.
	// Returns ErrLoanNotFound if the loan does not exist.
	MarkNotified(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new LoanStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller
	// (typically the circulation service via RunInTransaction).
	WithTx(tx *sql.Tx) LoanStore
}
