package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookworm/library-api/internal/domain"
	"github.com/bookworm/library-api/internal/store"
)

// Mailer delivers a single message to a borrower. Implementations live in
// internal/platform/mail; the notifier only cares about success or failure.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DefaultGracePeriod is how far past its due date a loan must be before the
// notifier considers it overdue enough to remind the borrower.
const DefaultGracePeriod = 24 * time.Hour

// OverdueNotifier sweeps the circulation ledger for loans that are past due
// by more than the grace period, sends each borrower a reminder and flags the
// loan so later sweeps skip it.
//
// The flag is persisted only after a successful send, so a crash between the
// two can produce one duplicate reminder on the next sweep. That is the
// accepted trade-off; deduplicating across a mailer and a store would need a
// distributed transaction.
type OverdueNotifier struct {
	loans  store.LoanStore
	mailer Mailer
	grace  time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewOverdueNotifier creates an OverdueNotifier.
// The now function is injectable for tests; pass nil for time.Now.
// It returns an error if loans or mailer is nil.
func NewOverdueNotifier(
	loans store.LoanStore,
	mailer Mailer,
	grace time.Duration,
	now func() time.Time,
	logger *slog.Logger,
) (*OverdueNotifier, error) {
	if loans == nil {
		return nil, errors.New("loan store cannot be nil")
	}
	if mailer == nil {
		return nil, errors.New("mailer cannot be nil")
	}
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OverdueNotifier{
		loans:  loans,
		mailer: mailer,
		grace:  grace,
		now:    now,
		logger: logger.With(slog.String("component", "overdue_notifier")),
	}, nil
}

// SweepOverdue runs one sweep: it selects active, unflagged loans whose due
// date lies more than the grace period in the past, mails each borrower and
// marks the loan notified. A delivery failure for one loan is logged and the
// rest of the batch still runs; the failed loan stays unflagged and is picked
// up again on the next sweep. Returns the number of loans notified. The
// returned error covers only the selection query; per-loan failures never
// abort the sweep.
func (n *OverdueNotifier) SweepOverdue(ctx context.Context) (int, error) {
	cutoff := n.now().UTC().Add(-n.grace)

	overdue, err := n.loans.FindOverdue(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to find overdue loans: %w", err)
	}
	if len(overdue) == 0 {
		return 0, nil
	}

	n.logger.Info("overdue sweep started",
		slog.Int("candidates", len(overdue)),
		slog.Time("cutoff", cutoff))

	notified := 0
	for _, loan := range overdue {
		if err := n.notifyOne(ctx, loan); err != nil {
			n.logger.Error("failed to notify borrower",
				slog.String("loan_id", loan.ID.String()),
				slog.String("borrower_email", loan.BorrowerEmail),
				slog.String("error", err.Error()))
			continue
		}
		notified++
	}

	n.logger.Info("overdue sweep finished",
		slog.Int("notified", notified),
		slog.Int("failed", len(overdue)-notified))
	return notified, nil
}

// notifyOne sends the reminder for a single loan and flags it. The flag write
// happens after the send so an unsent reminder is never suppressed.
func (n *OverdueNotifier) notifyOne(ctx context.Context, loan *domain.Loan) error {
	subject, body := composeReminder(loan)

	if err := n.mailer.Send(ctx, loan.BorrowerEmail, subject, body); err != nil {
		return fmt.Errorf("delivery failed: %w", err)
	}

	if err := n.loans.MarkNotified(ctx, loan.ID); err != nil {
		return fmt.Errorf("delivered but failed to flag loan: %w", err)
	}

	return nil
}

// composeReminder builds the reminder text from the loan's denormalized
// borrower and title snapshots; no live records are fetched.
func composeReminder(loan *domain.Loan) (subject, body string) {
	subject = fmt.Sprintf("Overdue reminder: %q", loan.TitleName)
	body = fmt.Sprintf(
		"Hello %s,\n\n"+
			"Our records show that %q, borrowed on %s, was due back on %s "+
			"and has not been returned.\n\n"+
			"Please return it at your earliest convenience. A late fee is "+
			"accruing daily and will be finalized when the book is returned.\n\n"+
			"BookWorm Library",
		loan.BorrowerName,
		loan.TitleName,
		loan.BorrowDate.Format("January 2, 2006"),
		loan.DueDate.Format("January 2, 2006"),
	)
	return subject, body
}
