package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookworm/library-api/internal/config"
	"github.com/bookworm/library-api/internal/fine"
	"github.com/bookworm/library-api/internal/platform/mail"
	"github.com/bookworm/library-api/internal/platform/postgres"
	"github.com/bookworm/library-api/internal/service"
	"github.com/bookworm/library-api/internal/service/auth"
	"github.com/bookworm/library-api/internal/store"
	"github.com/bookworm/library-api/internal/task"
)

// application holds the shared application dependencies so wiring and
// shutdown live in one place.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	titleStore    store.TitleStore
	borrowerStore store.BorrowerStore
	loanStore     store.LoanStore

	jwtService  auth.JWTService
	circulation service.CirculationService

	mailer    task.Mailer
	notifier  *task.OverdueNotifier
	scheduler *task.Scheduler
}

// newApplication creates an application instance with all dependencies
// initialized. Configuration, logging and the database connection must
// already be established.
func newApplication(cfg *config.Config, appLogger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: appLogger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.titleStore = postgres.NewPostgresTitleStore(db, appLogger)
	app.borrowerStore = postgres.NewPostgresBorrowerStore(db, appLogger)
	app.loanStore = postgres.NewPostgresLoanStore(db, appLogger)

	calculator := fine.NewCalculator(
		time.Duration(cfg.Circulation.FineUnitHours)*time.Hour,
		cfg.Circulation.FineRatePerUnit,
	)

	app.circulation, err = service.NewCirculationService(
		store.NewSQLTransactor(db),
		app.titleStore,
		app.borrowerStore,
		app.loanStore,
		calculator,
		time.Duration(cfg.Circulation.LoanPeriodDays)*24*time.Hour,
		nil,
		appLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize circulation service: %w", err)
	}

	app.mailer, err = setupMailer(cfg.SMTP, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	app.notifier, err = task.NewOverdueNotifier(
		app.loanStore,
		app.mailer,
		time.Duration(cfg.Circulation.OverdueGraceHours)*time.Hour,
		nil,
		appLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize overdue notifier: %w", err)
	}

	app.scheduler, err = task.NewScheduler(
		app.notifier,
		time.Duration(cfg.Circulation.SweepIntervalMinutes)*time.Minute,
		appLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sweep scheduler: %w", err)
	}

	appLogger.Info("application initialized",
		slog.Int("loan_period_days", cfg.Circulation.LoanPeriodDays),
		slog.Int("sweep_interval_minutes", cfg.Circulation.SweepIntervalMinutes))
	return app, nil
}

// setupMailer picks the SMTP mailer when a relay is configured and falls back
// to the log-only mailer otherwise, so the notifier path always runs.
func setupMailer(cfg config.SMTPConfig, appLogger *slog.Logger) (task.Mailer, error) {
	if cfg.Host == "" {
		appLogger.Warn("no smtp host configured, overdue reminders will only be logged")
		return mail.NewLogMailer(appLogger), nil
	}
	return mail.NewSMTPMailer(cfg, appLogger)
}
