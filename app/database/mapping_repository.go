package database

import (
	"database/sql"
	"fmt"
)

var _ MappingRepository = (*MappingRepositoryImpl)(nil)

// MappingRepositoryImpl handles database operations for event mappings
type MappingRepositoryImpl struct {
	db *DB
}

// NewMappingRepository creates a new mapping repository
func NewMappingRepository(db *DB) *MappingRepositoryImpl {
	return &MappingRepositoryImpl{db: db}
}

// GetRemoteID returns the remote event id tracked for a UID, or an empty
// string when the UID has never been pushed to the calendar.
func (r *MappingRepositoryImpl) GetRemoteID(calendarID, uid string) (string, error) {
	var remoteID string
	err := r.db.QueryRow(`
		SELECT remote_id FROM event_mappings
		WHERE calendar_id = ? AND uid = ?
	`, calendarID, uid).Scan(&remoteID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get mapping: %w", err)
	}

	return remoteID, nil
}

// GetAll returns every tracked mapping for a calendar, keyed by UID
func (r *MappingRepositoryImpl) GetAll(calendarID string) (map[string]string, error) {
	rows, err := r.db.Query(`
		SELECT uid, remote_id FROM event_mappings
		WHERE calendar_id = ?
	`, calendarID)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer rows.Close()

	mappings := make(map[string]string)
	for rows.Next() {
		var uid, remoteID string
		if err := rows.Scan(&uid, &remoteID); err != nil {
			return nil, fmt.Errorf("failed to scan mapping row: %w", err)
		}
		mappings[uid] = remoteID
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mapping rows: %w", err)
	}

	return mappings, nil
}

// Upsert stores or replaces the remote id tracked for a UID
func (r *MappingRepositoryImpl) Upsert(calendarID, uid, remoteID string) error {
	_, err := r.db.Exec(`
		INSERT INTO event_mappings (calendar_id, uid, remote_id)
		VALUES (?, ?, ?)
		ON CONFLICT (calendar_id, uid) DO UPDATE SET
			remote_id = excluded.remote_id
	`, calendarID, uid, remoteID)
	if err != nil {
		return fmt.Errorf("failed to upsert mapping: %w", err)
	}

	return nil
}

// Delete removes the mapping for a UID
func (r *MappingRepositoryImpl) Delete(calendarID, uid string) error {
	_, err := r.db.Exec(`
		DELETE FROM event_mappings
		WHERE calendar_id = ? AND uid = ?
	`, calendarID, uid)
	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}

	return nil
}
