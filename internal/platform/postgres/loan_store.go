package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bookworm/library-api/internal/domain"
	"github.com/bookworm/library-api/internal/platform/logger"
	"github.com/bookworm/library-api/internal/store"
)

// PostgresLoanStore implements the store.LoanStore interface
// using a PostgreSQL database as the storage backend.
type PostgresLoanStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresLoanStore creates a new PostgreSQL implementation of the
// LoanStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresLoanStore(db store.DBTX, logger *slog.Logger) *PostgresLoanStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresLoanStore{
		db:     db,
		logger: logger.With(slog.String("component", "loan_store")),
	}
}

// Ensure PostgresLoanStore implements store.LoanStore interface
var _ store.LoanStore = (*PostgresLoanStore)(nil)

const loanColumns = `
	id, borrower_id, borrower_name, borrower_email,
	title_id, title_name, price,
	borrow_date, due_date, return_date, fine, notified,
	created_at, updated_at
`

// Create implements store.LoanStore.Create
// It saves a new loan, relying on the partial unique index over
// (borrower_id, title_id) WHERE return_date IS NULL to reject a second
// active loan for the same pair inside the insert itself.
// Returns store.ErrActiveLoanExists on that conflict and
// store.ErrInvalidEntity when a referenced borrower or title is missing.
func (s *PostgresLoanStore) Create(ctx context.Context, loan *domain.Loan) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := loan.Validate(); err != nil {
		log.Warn("loan validation failed during create",
			slog.String("error", err.Error()),
			slog.String("loan_id", loan.ID.String()))
		return err
	}

	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		loan.ID,
		loan.BorrowerID,
		loan.BorrowerName,
		loan.BorrowerEmail,
		loan.TitleID,
		loan.TitleName,
		loan.Price,
		loan.BorrowDate,
		loan.DueDate,
		loan.ReturnDate,
		loan.Fine,
		loan.Notified,
		loan.CreatedAt,
		loan.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			log.Debug("active loan already exists",
				slog.String("borrower_id", loan.BorrowerID.String()),
				slog.String("title_id", loan.TitleID.String()))
			return store.ErrActiveLoanExists
		}
		if isForeignKeyViolation(err) {
			log.Warn("foreign key violation during loan creation",
				slog.String("error", err.Error()),
				slog.String("loan_id", loan.ID.String()))
			return fmt.Errorf("%w: referenced borrower or title not found",
				store.ErrInvalidEntity)
		}

		log.Error("failed to create loan",
			slog.String("error", err.Error()),
			slog.String("loan_id", loan.ID.String()),
			slog.String("borrower_id", loan.BorrowerID.String()),
			slog.String("title_id", loan.TitleID.String()))
		return store.NewStoreError("loan", "create", "failed to create loan", err)
	}

	log.Info("loan created",
		slog.String("loan_id", loan.ID.String()),
		slog.String("borrower_id", loan.BorrowerID.String()),
		slog.String("title_id", loan.TitleID.String()),
		slog.Time("due_date", loan.DueDate))
	return nil
}

// GetByID implements store.LoanStore.GetByID
// Returns store.ErrLoanNotFound if the loan does not exist.
func (s *PostgresLoanStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	loan, err := scanLoan(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("loan not found", slog.String("loan_id", id.String()))
			return nil, store.ErrLoanNotFound
		}
		log.Error("failed to get loan by ID",
			slog.String("error", err.Error()),
			slog.String("loan_id", id.String()))
		return nil, store.NewStoreError("loan", "get", "failed to get loan", err)
	}

	return loan, nil
}

// FinalizeReturn implements store.LoanStore.FinalizeReturn
// The update is guarded by "return_date IS NULL" so two concurrent returns of
// the same loan resolve to exactly one success: the loser's update matches
// zero rows and is reported as store.ErrLoanAlreadyReturned.
func (s *PostgresLoanStore) FinalizeReturn(
	ctx context.Context,
	id uuid.UUID,
	returnDate time.Time,
	fine float64,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE loans
		SET return_date = $2, fine = $3, updated_at = $4
		WHERE id = $1 AND return_date IS NULL
	`

	result, err := s.db.ExecContext(ctx, query, id, returnDate, fine, time.Now().UTC())
	if err != nil {
		log.Error("failed to finalize loan return",
			slog.String("error", err.Error()),
			slog.String("loan_id", id.String()))
		return store.NewStoreError("loan", "finalize_return", "failed to finalize loan return", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("loan_id", id.String()))
		return err
	}

	if rowsAffected == 0 {
		// Either the loan is missing or it was already returned.
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		log.Debug("loan already returned", slog.String("loan_id", id.String()))
		return store.ErrLoanAlreadyReturned
	}

	log.Info("loan return finalized",
		slog.String("loan_id", id.String()),
		slog.Float64("fine", fine))
	return nil
}

// ListActiveByBorrower implements store.LoanStore.ListActiveByBorrower
// It retrieves the borrower's active loans, newest first.
func (s *PostgresLoanStore) ListActiveByBorrower(
	ctx context.Context,
	borrowerID uuid.UUID,
) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE borrower_id = $1 AND return_date IS NULL
		ORDER BY created_at DESC
	`
	return s.list(ctx, query, borrowerID)
}

// ListAll implements store.LoanStore.ListAll
// It retrieves every loan in the ledger, newest first.
func (s *PostgresLoanStore) ListAll(ctx context.Context) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		ORDER BY created_at DESC
	`
	return s.list(ctx, query)
}

// FindOverdue implements store.LoanStore.FindOverdue
// It retrieves active, unnotified loans due before the cutoff, oldest first
// so the longest-overdue borrowers are reminded first.
func (s *PostgresLoanStore) FindOverdue(ctx context.Context, cutoff time.Time) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE due_date < $1 AND return_date IS NULL AND notified = FALSE
		ORDER BY due_date ASC
	`
	return s.list(ctx, query, cutoff)
}

// MarkNotified implements store.LoanStore.MarkNotified
// Returns store.ErrLoanNotFound if the loan does not exist.
func (s *PostgresLoanStore) MarkNotified(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE loans
		SET notified = TRUE, updated_at = $2
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		log.Error("failed to mark loan notified",
			slog.String("error", err.Error()),
			slog.String("loan_id", id.String()))
		return store.NewStoreError("loan", "mark_notified", "failed to mark loan notified", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("loan_id", id.String()))
		return err
	}

	if rowsAffected == 0 {
		log.Debug("loan not found for notified flag", slog.String("loan_id", id.String()))
		return store.ErrLoanNotFound
	}

	return nil
}

// WithTx implements store.LoanStore.WithTx
// It returns a new LoanStore that runs all operations on the given transaction.
func (s *PostgresLoanStore) WithTx(tx *sql.Tx) store.LoanStore {
	return &PostgresLoanStore{
		db:     tx,
		logger: s.logger,
	}
}

func (s *PostgresLoanStore) list(ctx context.Context, query string, args ...any) ([]*domain.Loan, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query loans", slog.String("error", err.Error()))
		return nil, store.NewStoreError("loan", "list", "failed to query loans", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var loans []*domain.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			log.Error("failed to scan loan row", slog.String("error", err.Error()))
			return nil, err
		}
		loans = append(loans, loan)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	// Return empty slice instead of nil if no loans found
	if loans == nil {
		loans = []*domain.Loan{}
	}

	return loans, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoan(row rowScanner) (*domain.Loan, error) {
	var loan domain.Loan
	var returnDate sql.NullTime

	err := row.Scan(
		&loan.ID,
		&loan.BorrowerID,
		&loan.BorrowerName,
		&loan.BorrowerEmail,
		&loan.TitleID,
		&loan.TitleName,
		&loan.Price,
		&loan.BorrowDate,
		&loan.DueDate,
		&returnDate,
		&loan.Fine,
		&loan.Notified,
		&loan.CreatedAt,
		&loan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if returnDate.Valid {
		t := returnDate.Time
		loan.ReturnDate = &t
	}

	return &loan, nil
}
