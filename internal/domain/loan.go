package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Loan-specific validation errors
var (
	// ErrLoanIDEmpty is returned when a loan ID is empty or nil.
	ErrLoanIDEmpty = errors.New("loan ID cannot be empty")

	// ErrLoanBorrowerIDEmpty is returned when a loan's borrower ID is empty or nil.
	ErrLoanBorrowerIDEmpty = errors.New("loan borrower ID cannot be empty")

	// ErrLoanTitleIDEmpty is returned when a loan's title ID is empty or nil.
	ErrLoanTitleIDEmpty = errors.New("loan title ID cannot be empty")

	// ErrLoanDueBeforeBorrow is returned when a loan's due date precedes its borrow date.
	ErrLoanDueBeforeBorrow = errors.New("loan due date cannot precede borrow date")

	// ErrLoanFineNegative is returned when a loan's fine is negative.
	ErrLoanFineNegative = errors.New("loan fine cannot be negative")
)

// Loan is one borrow-to-return transaction in the circulation ledger.
//
// BorrowerName, BorrowerEmail, TitleName and Price are denormalized snapshots
// taken at borrow time. They are intentionally never updated when the source
// records change, so historical loans show the member and title as they were
// when the copy left the shelf. ReturnDate is nil while the loan is active.
// Loans are append-only: they are finalized on return, never deleted.
type Loan struct {
	ID            uuid.UUID  `json:"id"`
	BorrowerID    uuid.UUID  `json:"borrower_id"`
	BorrowerName  string     `json:"borrower_name"`
	BorrowerEmail string     `json:"borrower_email"`
	TitleID       uuid.UUID  `json:"title_id"`
	TitleName     string     `json:"title_name"`
	Price         float64    `json:"price"`
	BorrowDate    time.Time  `json:"borrow_date"`
	DueDate       time.Time  `json:"due_date"`
	ReturnDate    *time.Time `json:"return_date,omitempty"`
	Fine          float64    `json:"fine"`
	Notified      bool       `json:"notified"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewLoan creates a new active Loan for the given borrower and title,
// snapshotting the borrower and title display fields. The due date is
// borrowedAt plus the loan period. Returns an error if validation fails.
func NewLoan(borrower *Borrower, title *Title, borrowedAt time.Time, period time.Duration) (*Loan, error) {
	loan := &Loan{
		ID:            uuid.New(),
		BorrowerID:    borrower.ID,
		BorrowerName:  borrower.Name,
		BorrowerEmail: borrower.Email,
		TitleID:       title.ID,
		TitleName:     title.Name,
		Price:         title.Price,
		BorrowDate:    borrowedAt,
		DueDate:       borrowedAt.Add(period),
		ReturnDate:    nil,
		Fine:          0,
		Notified:      false,
		CreatedAt:     borrowedAt,
		UpdatedAt:     borrowedAt,
	}

	if err := loan.Validate(); err != nil {
		return nil, err
	}

	return loan, nil
}

// Validate checks if the Loan has valid data.
// Returns an error if any field fails validation.
func (l *Loan) Validate() error {
	if l.ID == uuid.Nil {
		return ErrLoanIDEmpty
	}

	if l.BorrowerID == uuid.Nil {
		return ErrLoanBorrowerIDEmpty
	}

	if l.TitleID == uuid.Nil {
		return ErrLoanTitleIDEmpty
	}

	if l.DueDate.Before(l.BorrowDate) {
		return ErrLoanDueBeforeBorrow
	}

	if l.Fine < 0 {
		return ErrLoanFineNegative
	}

	return nil
}

// IsActive reports whether the loan has not been returned yet.
func (l *Loan) IsActive() bool {
	return l.ReturnDate == nil
}

// IsOverdue reports whether the loan is active and its due date lies more
// than the grace window before now.
func (l *Loan) IsOverdue(now time.Time, grace time.Duration) bool {
	return l.IsActive() && l.DueDate.Before(now.Add(-grace))
}
