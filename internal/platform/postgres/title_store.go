package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bookworm/library-api/internal/domain"
	"github.com/bookworm/library-api/internal/platform/logger"
	"github.com/bookworm/library-api/internal/store"
)

// PostgresTitleStore implements the store.TitleStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTitleStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTitleStore creates a new PostgreSQL implementation of the
// TitleStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTitleStore(db store.DBTX, logger *slog.Logger) *PostgresTitleStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTitleStore{
		db:     db,
		logger: logger.With(slog.String("component", "title_store")),
	}
}

// Ensure PostgresTitleStore implements store.TitleStore interface
var _ store.TitleStore = (*PostgresTitleStore)(nil)

// GetByID implements store.TitleStore.GetByID
// It retrieves a title by its unique ID.
// Returns store.ErrTitleNotFound if the title does not exist.
func (s *PostgresTitleStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Title, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, name, author, price, total_copies, available_copies, created_at, updated_at
		FROM titles
		WHERE id = $1
	`

	var title domain.Title
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&title.ID,
		&title.Name,
		&title.Author,
		&title.Price,
		&title.TotalCopies,
		&title.AvailableCopies,
		&title.CreatedAt,
		&title.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("title not found", slog.String("title_id", id.String()))
			return nil, store.ErrTitleNotFound
		}
		log.Error("failed to get title by ID",
			slog.String("error", err.Error()),
			slog.String("title_id", id.String()))
		return nil, store.NewStoreError("title", "get", "failed to get title", err)
	}

	return &title, nil
}

// AdjustAvailable implements store.TitleStore.AdjustAvailable
// It changes the available copy count by delta in a single conditional
// UPDATE, so the range check and the write are one atomic statement. A zero
// rows result means the guard refused the change; the follow-up read
// distinguishes a missing title from an out-of-range adjustment.
func (s *PostgresTitleStore) AdjustAvailable(ctx context.Context, id uuid.UUID, delta int) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE titles
		SET available_copies = available_copies + $2, updated_at = $3
		WHERE id = $1
		  AND available_copies + $2 >= 0
		  AND available_copies + $2 <= total_copies
	`

	result, err := s.db.ExecContext(ctx, query, id, delta, time.Now().UTC())
	if err != nil {
		if isCheckViolation(err) {
			// The schema-level check fired before the WHERE guard could; treat
			// the same as a refused adjustment.
			err = store.ErrNoAvailableCopies
			if delta > 0 {
				err = store.ErrCopiesExceedTotal
			}
			return err
		}
		log.Error("failed to adjust available copies",
			slog.String("error", err.Error()),
			slog.String("title_id", id.String()),
			slog.Int("delta", delta))
		return store.NewStoreError("title", "adjust_available", "failed to adjust available copies", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("title_id", id.String()))
		return err
	}

	if rowsAffected == 0 {
		// Either the title is missing or the adjustment was refused.
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		if delta < 0 {
			log.Debug("adjustment refused, no available copies",
				slog.String("title_id", id.String()))
			return store.ErrNoAvailableCopies
		}
		log.Debug("adjustment refused, available copies would exceed total",
			slog.String("title_id", id.String()))
		return store.ErrCopiesExceedTotal
	}

	log.Debug("adjusted available copies",
		slog.String("title_id", id.String()),
		slog.Int("delta", delta))
	return nil
}

// WithTx implements store.TitleStore.WithTx
// It returns a new TitleStore that runs all operations on the given transaction.
func (s *PostgresTitleStore) WithTx(tx *sql.Tx) store.TitleStore {
	return &PostgresTitleStore{
		db:     tx,
		logger: s.logger,
	}
}
