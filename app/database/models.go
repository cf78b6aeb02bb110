package database

import (
	"time"
)

// SyncRun is one completed synchronization run
type SyncRun struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time

	TotalEvents      int
	Created          int
	Updated          int
	Deleted          int
	Failed           int
	SkippedRows      int
	SkippedUnmanaged int
}

// RunTotals aggregates counts across all recorded runs
type RunTotals struct {
	Runs    int
	Created int
	Updated int
	Deleted int
	Failed  int
}
