package database

// MappingRepository persists the uid ↔ remote event id mapping, so
// identity lookup never depends on parsing a display field of the remote
// copy.
type MappingRepository interface {
	GetRemoteID(calendarID, uid string) (string, error)
	GetAll(calendarID string) (map[string]string, error)

	Upsert(calendarID, uid, remoteID string) error
	Delete(calendarID, uid string) error
}

// RunRepository persists synchronization run history
type RunRepository interface {
	RecordRun(run SyncRun) error

	GetLatestRun() (*SyncRun, error)
	GetTotals() (RunTotals, error)
}
