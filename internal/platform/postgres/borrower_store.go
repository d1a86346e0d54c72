package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bookworm/library-api/internal/domain"
	"github.com/bookworm/library-api/internal/platform/logger"
	"github.com/bookworm/library-api/internal/store"
)

// PostgresBorrowerStore implements the store.BorrowerStore interface
// using a PostgreSQL database as the storage backend. The borrowers table is
// written by the external identity system; this store only reads it.
type PostgresBorrowerStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresBorrowerStore creates a new PostgreSQL implementation of the
// BorrowerStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresBorrowerStore(db store.DBTX, logger *slog.Logger) *PostgresBorrowerStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresBorrowerStore{
		db:     db,
		logger: logger.With(slog.String("component", "borrower_store")),
	}
}

// Ensure PostgresBorrowerStore implements store.BorrowerStore interface
var _ store.BorrowerStore = (*PostgresBorrowerStore)(nil)

const borrowerColumns = `id, name, email, role, verified, created_at, updated_at`

// GetByID implements store.BorrowerStore.GetByID
// Returns store.ErrBorrowerNotFound if the borrower does not exist.
func (s *PostgresBorrowerStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Borrower, error) {
	query := `SELECT ` + borrowerColumns + ` FROM borrowers WHERE id = $1`
	return s.getOne(ctx, query, id)
}

// GetByEmail implements store.BorrowerStore.GetByEmail
// Returns store.ErrBorrowerNotFound if the borrower does not exist.
func (s *PostgresBorrowerStore) GetByEmail(ctx context.Context, email string) (*domain.Borrower, error) {
	query := `SELECT ` + borrowerColumns + ` FROM borrowers WHERE email = $1`
	return s.getOne(ctx, query, email)
}

func (s *PostgresBorrowerStore) getOne(ctx context.Context, query string, arg any) (*domain.Borrower, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var borrower domain.Borrower
	var role string

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&borrower.ID,
		&borrower.Name,
		&borrower.Email,
		&role,
		&borrower.Verified,
		&borrower.CreatedAt,
		&borrower.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("borrower not found")
			return nil, store.ErrBorrowerNotFound
		}
		log.Error("failed to get borrower",
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("borrower", "get", "failed to get borrower", err)
	}

	borrower.Role = domain.Role(role)
	return &borrower, nil
}

// WithTx implements store.BorrowerStore.WithTx
// It returns a new BorrowerStore that runs all operations on the given transaction.
func (s *PostgresBorrowerStore) WithTx(tx *sql.Tx) store.BorrowerStore {
	return &PostgresBorrowerStore{
		db:     tx,
		logger: s.logger,
	}
}
