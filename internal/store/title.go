package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/bookworm/library-api/internal/domain"
)

// TitleStore defines the interface for title inventory persistence.
//
// Catalog management (creating, editing and searching titles) is owned by an
// external system; circulation only reads titles and adjusts the available
// copy counter.
type TitleStore interface {
	// GetByID retrieves a title by its unique ID.
	// Returns ErrTitleNotFound if the title does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Title, error)

	// AdjustAvailable atomically changes a title's available copy count by
	// delta (negative to take a copy, positive to put one back). The change
	// is a single conditional update: it is refused with ErrNoAvailableCopies
	// if the count would drop below zero, and with ErrCopiesExceedTotal if it
	// would exceed the title's total. Returns ErrTitleNotFound if the title
	// does not exist.
	//
	// The available counter is shared between concurrent borrow and return
	// operations, possibly across processes, so the guard lives in the UPDATE
	// statement itself rather than in a prior read.
	AdjustAvailable(ctx context.Context, id uuid.UUID, delta int) error

	// WithTx returns a new TitleStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller
	// (typically the circulation service via RunInTransaction).
	WithTx(tx *sql.Tx) TitleStore
}
