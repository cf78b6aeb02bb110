package tasks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingRunner struct {
	runs  atomic.Int32
	block chan struct{}
}

func (r *countingRunner) Run(_ context.Context) error {
	r.runs.Add(1)
	if r.block != nil {
		<-r.block
	}
	return nil
}

func TestSchedulerStartRunsImmediately(t *testing.T) {
	runner := &countingRunner{}
	scheduler := NewScheduler(runner, "0 6 * * *")

	if err := scheduler.Start(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	scheduler.Stop()

	if got := runner.runs.Load(); got != 1 {
		t.Errorf("Expected 1 startup run, got %d", got)
	}
}

func TestSchedulerStartInvalidSchedule(t *testing.T) {
	scheduler := NewScheduler(&countingRunner{}, "not a schedule")

	if err := scheduler.Start(); err == nil {
		t.Errorf("Expected an error for an invalid schedule")
	}
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	runner := &countingRunner{block: make(chan struct{})}
	scheduler := NewScheduler(runner, "0 6 * * *")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.execute()
	}()

	// Wait for the first run to hold the lock, then fire a second tick
	for runner.runs.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	scheduler.execute()

	close(runner.block)
	wg.Wait()

	if got := runner.runs.Load(); got != 1 {
		t.Errorf("Expected overlapping tick to be skipped, got %d runs", got)
	}
}
