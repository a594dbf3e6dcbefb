package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gymcrm/gymcrm-backend/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrSweepInProgress is returned when a finalization sweep is already running in this process
var ErrSweepInProgress = errors.New("month finalization is already running")

// MonthFinalizer closes out the previous business month for every gym
type MonthFinalizer interface {
	FinalizePreviousMonth(ctx context.Context) (*service.SweepResult, error)
}

// FinalizeWorker runs the month finalization sweep on a cron schedule
type FinalizeWorker struct {
	finalizer MonthFinalizer
	logger    zerolog.Logger
	config    FinalizeWorkerConfig
	cron      *cron.Cron

	runMu      sync.Mutex
	catchUp    sync.WaitGroup
	mu         sync.Mutex
	running    bool
	lastRunAt  time.Time
	lastResult *service.SweepResult
}

// FinalizeWorkerConfig holds configuration for the finalize worker
type FinalizeWorkerConfig struct {
	Schedule   string         // standard 5-field cron expression
	Location   *time.Location // timezone the schedule is evaluated in
	Timeout    time.Duration  // upper bound of one sweep
	RunOnStart bool           // catch up a month missed while the process was down
}

// DefaultFinalizeWorkerConfig runs at 00:30 on the first day of each month
func DefaultFinalizeWorkerConfig() FinalizeWorkerConfig {
	return FinalizeWorkerConfig{
		Schedule:   "30 0 1 * *",
		Location:   time.UTC,
		Timeout:    10 * time.Minute,
		RunOnStart: true,
	}
}

// NewFinalizeWorker creates a new finalize worker. The schedule is validated eagerly.
func NewFinalizeWorker(finalizer MonthFinalizer, logger zerolog.Logger, config FinalizeWorkerConfig) (*FinalizeWorker, error) {
	defaults := DefaultFinalizeWorkerConfig()
	if config.Schedule == "" {
		config.Schedule = defaults.Schedule
	}
	if config.Location == nil {
		config.Location = defaults.Location
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if _, err := cron.ParseStandard(config.Schedule); err != nil {
		return nil, fmt.Errorf("invalid finalize schedule %q: %w", config.Schedule, err)
	}

	w := &FinalizeWorker{
		finalizer: finalizer,
		logger:    logger.With().Str("component", "finalize_worker").Logger(),
		config:    config,
	}
	cronLogger := cron.PrintfLogger(&w.logger)
	w.cron = cron.New(
		cron.WithLocation(config.Location),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	return w, nil
}

// Start registers the sweep and starts the scheduler
func (w *FinalizeWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if _, err := w.cron.AddFunc(w.config.Schedule, func() { w.runScheduled(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule finalize job: %w", err)
	}
	w.cron.Start()

	w.logger.Info().
		Str("schedule", w.config.Schedule).
		Str("timezone", w.config.Location.String()).
		Bool("run_on_start", w.config.RunOnStart).
		Msg("Starting finalize worker")

	if w.config.RunOnStart {
		w.catchUp.Add(1)
		go func() {
			defer w.catchUp.Done()
			w.runScheduled(ctx)
		}()
	}
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (w *FinalizeWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping finalize worker")
	<-w.cron.Stop().Done()
	w.catchUp.Wait()
	w.logger.Info().Msg("Finalize worker stopped")
}

func (w *FinalizeWorker) runScheduled(ctx context.Context) {
	result, err := w.RunOnce(ctx)
	if err != nil {
		if !errors.Is(err, ErrSweepInProgress) {
			w.logger.Error().Err(err).Msg("Scheduled month finalization failed")
		}
		return
	}
	w.logger.Info().
		Int("year", result.Year).
		Int("month", result.Month).
		Int("gyms", result.TotalGyms).
		Int("created", result.Created).
		Int("finalized", result.Finalized).
		Int("failed", result.Failed).
		Msg("Scheduled month finalization completed")
}

// RunOnce runs one sweep now. Overlapping calls fail with ErrSweepInProgress.
func (w *FinalizeWorker) RunOnce(ctx context.Context) (*service.SweepResult, error) {
	if !w.runMu.TryLock() {
		return nil, ErrSweepInProgress
	}
	defer w.runMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	result, err := w.finalizer.FinalizePreviousMonth(ctx)

	w.mu.Lock()
	w.lastRunAt = time.Now()
	if result != nil {
		w.lastResult = result
	}
	w.mu.Unlock()

	return result, err
}

// LastRun returns when the last sweep finished and its result
func (w *FinalizeWorker) LastRun() (time.Time, *service.SweepResult) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRunAt, w.lastResult
}

// IsRunning returns whether the scheduler is started
func (w *FinalizeWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
