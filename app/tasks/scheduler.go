package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Run timeout covers two page fetches with retries plus the remote
// convergence pass.
const runTimeout = 10 * time.Minute

var _ SchedulerInterface = (*Scheduler)(nil)

// Runner executes one full synchronization run
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a plain function to the Runner interface
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Scheduler drives synchronization runs on a cron schedule. Runs are
// single-flight: a tick firing while the previous run is still in
// progress is skipped.
type Scheduler struct {
	runner   Runner
	schedule string
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// runMu covers the startup run too, which fires outside the cron
	// job chain
	runMu sync.Mutex
}

func NewScheduler(runner Runner, schedule string) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:   runner,
		schedule: schedule,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start validates the schedule, registers the run job and launches the
// cron loop. One run is executed immediately on startup.
func (s *Scheduler) Start() error {
	s.cron = cron.New(cron.WithChain(cron.Recover(&cronLogger{})))

	if _, err := s.cron.AddFunc(s.schedule, s.execute); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.schedule, err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute()
	}()

	s.cron.Start()
	slog.Info("Scheduler started", "schedule", s.schedule)
	return nil
}

// Stop halts the cron loop and waits for an in-flight run to finish
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) execute() {
	if !s.runMu.TryLock() {
		slog.Warn("Previous run still in progress, skipping")
		return
	}
	defer s.runMu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, runTimeout)
	defer cancel()

	if err := s.runner.Run(ctx); err != nil {
		slog.Error("Scheduled run failed", "error", err)
	}
}

// cronLogger adapts the cron logging callbacks to slog
type cronLogger struct{}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error(msg, append(keysAndValues, "error", err)...)
}
