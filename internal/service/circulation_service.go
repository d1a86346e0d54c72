package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bookworm/library-api/internal/domain"
	"github.com/bookworm/library-api/internal/fine"
	"github.com/bookworm/library-api/internal/platform/logger"
	"github.com/bookworm/library-api/internal/store"
)

// CirculationService provides the circulation lifecycle operations.
type CirculationService interface {
	// Borrow takes one available copy of the title for the borrower and
	// records a new loan due after the configured loan period.
	// Returns the created loan, or ErrTitleNotFound, ErrBorrowerNotFound,
	// ErrBorrowerUnverified, ErrOutOfStock or ErrAlreadyBorrowed.
	Borrow(ctx context.Context, titleID, borrowerID uuid.UUID) (*domain.Loan, error)

	// Return finalizes the loan: it puts the copy back on the shelf, stamps
	// the return date and computes the fine owed for lateness.
	// Returns the fine amount, or ErrLoanNotFound or ErrAlreadyReturned.
	Return(ctx context.Context, loanID uuid.UUID) (float64, error)

	// ListActiveLoans retrieves the borrower's unreturned loans, newest first.
	ListActiveLoans(ctx context.Context, borrowerID uuid.UUID) ([]*domain.Loan, error)

	// ListAllLoans retrieves the full circulation ledger, newest first.
	// Administrative.
	ListAllLoans(ctx context.Context) ([]*domain.Loan, error)
}

// circulationService implements the CirculationService interface.
//
// Borrow and Return are the only operations that mutate shared inventory
// state, so each runs as one database transaction combining the inventory
// adjustment with the loan mutation. Contention is resolved by the store's
// conditional updates and unique index, never by in-process locks, so the
// guarantees hold across processes.
type circulationService struct {
	tx         store.Transactor
	titles     store.TitleStore
	borrowers  store.BorrowerStore
	loans      store.LoanStore
	calculator fine.Calculator
	loanPeriod time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// Ensure circulationService implements CirculationService interface
var _ CirculationService = (*circulationService)(nil)

// NewCirculationService creates a new CirculationService.
// The now function is injectable for tests; pass nil for time.Now.
// It returns an error if any of the required dependencies are nil.
func NewCirculationService(
	tx store.Transactor,
	titles store.TitleStore,
	borrowers store.BorrowerStore,
	loans store.LoanStore,
	calculator fine.Calculator,
	loanPeriod time.Duration,
	now func() time.Time,
	logger *slog.Logger,
) (CirculationService, error) {
	if tx == nil {
		return nil, errors.New("transactor cannot be nil")
	}
	if titles == nil {
		return nil, errors.New("title store cannot be nil")
	}
	if borrowers == nil {
		return nil, errors.New("borrower store cannot be nil")
	}
	if loans == nil {
		return nil, errors.New("loan store cannot be nil")
	}
	if loanPeriod <= 0 {
		return nil, errors.New("loan period must be positive")
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &circulationService{
		tx:         tx,
		titles:     titles,
		borrowers:  borrowers,
		loans:      loans,
		calculator: calculator,
		loanPeriod: loanPeriod,
		now:        now,
		logger:     logger.With(slog.String("component", "circulation_service")),
	}, nil
}

// Borrow implements CirculationService.Borrow
// The verification check, the inventory decrement and the loan insert commit
// or roll back together. Two concurrent borrows of a title's last copy
// therefore resolve to exactly one success and one ErrOutOfStock; the loser
// of the active-loan uniqueness race gets ErrAlreadyBorrowed and the
// decrement it performed is rolled back.
func (s *circulationService) Borrow(
	ctx context.Context,
	titleID, borrowerID uuid.UUID,
) (*domain.Loan, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var created *domain.Loan
	err := s.tx.Transact(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txTitles := s.titles.WithTx(tx)
		txBorrowers := s.borrowers.WithTx(tx)
		txLoans := s.loans.WithTx(tx)

		borrower, err := txBorrowers.GetByID(ctx, borrowerID)
		if err != nil {
			if store.IsNotFoundError(err) {
				return ErrBorrowerNotFound
			}
			return NewCirculationError("borrow", "failed to load borrower", err)
		}

		if !borrower.Verified {
			log.Warn("borrow refused for unverified borrower",
				slog.String("borrower_id", borrowerID.String()))
			return ErrBorrowerUnverified
		}

		title, err := txTitles.GetByID(ctx, titleID)
		if err != nil {
			if store.IsNotFoundError(err) {
				return ErrTitleNotFound
			}
			return NewCirculationError("borrow", "failed to load title", err)
		}

		// Take the copy first; the conditional update is the stock check.
		if err := txTitles.AdjustAvailable(ctx, titleID, -1); err != nil {
			if errors.Is(err, store.ErrNoAvailableCopies) {
				return ErrOutOfStock
			}
			return NewCirculationError("borrow", "failed to take copy", err)
		}

		loan, err := domain.NewLoan(borrower, title, s.now().UTC(), s.loanPeriod)
		if err != nil {
			return NewCirculationError("borrow", "failed to build loan", err)
		}

		if err := txLoans.Create(ctx, loan); err != nil {
			if errors.Is(err, store.ErrActiveLoanExists) {
				return ErrAlreadyBorrowed
			}
			return NewCirculationError("borrow", "failed to record loan", err)
		}

		created = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("book borrowed",
		slog.String("loan_id", created.ID.String()),
		slog.String("borrower_id", borrowerID.String()),
		slog.String("title_id", titleID.String()),
		slog.Time("due_date", created.DueDate))
	return created, nil
}

// Return implements CirculationService.Return
// The finalize is guarded on "not yet returned" inside the same transaction
// as the inventory increment, so concurrent double returns yield exactly one
// success and the counter moves exactly once.
func (s *circulationService) Return(ctx context.Context, loanID uuid.UUID) (float64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var owed float64
	err := s.tx.Transact(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txTitles := s.titles.WithTx(tx)
		txLoans := s.loans.WithTx(tx)

		loan, err := txLoans.GetByID(ctx, loanID)
		if err != nil {
			if store.IsNotFoundError(err) {
				return ErrLoanNotFound
			}
			return NewCirculationError("return", "failed to load loan", err)
		}

		returnedAt := s.now().UTC()
		owed = s.calculator.Fine(loan.DueDate, returnedAt)

		if err := txLoans.FinalizeReturn(ctx, loanID, returnedAt, owed); err != nil {
			if errors.Is(err, store.ErrLoanAlreadyReturned) {
				return ErrAlreadyReturned
			}
			return NewCirculationError("return", "failed to finalize loan", err)
		}

		if err := txTitles.AdjustAvailable(ctx, loan.TitleID, +1); err != nil {
			if errors.Is(err, store.ErrCopiesExceedTotal) {
				// The shelf is already full; cap rather than fail the return.
				// The loan uniqueness invariant should make this unreachable.
				log.Warn("available copies already at total during return",
					slog.String("loan_id", loanID.String()),
					slog.String("title_id", loan.TitleID.String()))
				return nil
			}
			return NewCirculationError("return", "failed to put copy back", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Info("book returned",
		slog.String("loan_id", loanID.String()),
		slog.Float64("fine", owed))
	return owed, nil
}

// ListActiveLoans implements CirculationService.ListActiveLoans
func (s *circulationService) ListActiveLoans(
	ctx context.Context,
	borrowerID uuid.UUID,
) ([]*domain.Loan, error) {
	loans, err := s.loans.ListActiveByBorrower(ctx, borrowerID)
	if err != nil {
		return nil, NewCirculationError("list_active_loans", "failed to list loans", err)
	}
	return loans, nil
}

// ListAllLoans implements CirculationService.ListAllLoans
func (s *circulationService) ListAllLoans(ctx context.Context) ([]*domain.Loan, error) {
	loans, err := s.loans.ListAll(ctx)
	if err != nil {
		return nil, NewCirculationError("list_all_loans", "failed to list loans", err)
	}
	return loans, nil
}
