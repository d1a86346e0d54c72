package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is how often the scheduler runs the notifier sweep.
// The cadence is a tuning parameter, not a correctness requirement.
const DefaultSweepInterval = 30 * time.Minute

// Scheduler drives the overdue notifier on a fixed interval. It is owned by
// the process lifecycle: cmd/server constructs it, starts it after the stores
// are ready and stops it during graceful shutdown.
type Scheduler struct {
	notifier   *OverdueNotifier
	interval   time.Duration
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewScheduler creates a Scheduler for the given notifier.
// It returns an error if notifier is nil.
func NewScheduler(
	notifier *OverdueNotifier,
	interval time.Duration,
	logger *slog.Logger,
) (*Scheduler, error) {
	if notifier == nil {
		return nil, errors.New("notifier cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		notifier:   notifier,
		interval:   interval,
		ctx:        ctx,
		cancelFunc: cancel,
		logger:     logger.With(slog.String("component", "sweep_scheduler")),
	}, nil
}

// Start launches the sweep loop in a background goroutine. The first sweep
// runs immediately so overdue loans accumulated while the process was down
// are not left waiting a full interval.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
	s.logger.Info("sweep scheduler started",
		slog.Duration("interval", s.interval))
}

// Stop cancels the sweep loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.cancelFunc()
	s.wg.Wait()
	s.logger.Info("sweep scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Scheduler) sweep() {
	if _, err := s.notifier.SweepOverdue(s.ctx); err != nil {
		s.logger.Error("overdue sweep failed",
			slog.String("error", err.Error()))
	}
}
