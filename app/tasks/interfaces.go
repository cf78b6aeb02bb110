package tasks

// SchedulerInterface defines the interface for scheduled run management.
// Used by the main application to control the background sync loop.
// Example usage:
//
//	scheduler := NewScheduler(processor, cfg.SyncSchedule)
//	if err := scheduler.Start(); err != nil { ... }
//	defer scheduler.Stop()
type SchedulerInterface interface {
	Start() error
	Stop()
}
