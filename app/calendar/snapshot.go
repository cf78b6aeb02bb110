package calendar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// StorageError reports a snapshot file failure. Unlike row- and
// operation-level errors it is fatal to the run.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("snapshot %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Store owns the on-disk ICS snapshot between runs. The file is both the
// durable "last known good" state and the import payload handed to the
// remote store.
type Store struct {
	path      string
	generator *Generator
}

// NewStore creates a snapshot store writing through the given generator
func NewStore(path string, generator *Generator) *Store {
	return &Store{path: path, generator: generator}
}

// Load reads the previous snapshot. A missing file yields an empty set,
// not an error; an unreadable or unparseable file is a StorageError.
func (s *Store) Load() ([]Event, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &StorageError{Op: "read", Path: s.path, Err: err}
	}

	cal, err := ics.ParseCalendar(strings.NewReader(string(data)))
	if err != nil {
		return nil, &StorageError{Op: "parse", Path: s.path, Err: err}
	}

	events := make([]Event, 0, len(cal.Events()))
	for _, ve := range cal.Events() {
		event, err := parseVEvent(ve)
		if err != nil {
			return nil, &StorageError{Op: "parse", Path: s.path, Err: err}
		}
		events = append(events, event)
	}

	return events, nil
}

// Read returns the raw snapshot bytes. A missing file yields nil, not
// an error.
func (s *Store) Read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &StorageError{Op: "read", Path: s.path, Err: err}
	}
	return data, nil
}

// Save regenerates the snapshot in full and moves it into place, so a
// failed write never leaves a truncated file behind.
func (s *Store) Save(events []Event) error {
	content := s.generator.Run(events)

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.ics")
	if err != nil {
		return &StorageError{Op: "write", Path: s.path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &StorageError{Op: "write", Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &StorageError{Op: "write", Path: s.path, Err: err}
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &StorageError{Op: "write", Path: s.path, Err: err}
	}

	return nil
}

func parseVEvent(ve *ics.VEvent) (Event, error) {
	var event Event

	uid := ve.GetProperty(ics.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return event, fmt.Errorf("VEVENT missing UID")
	}
	event.UID = uid.Value

	if p := ve.GetProperty(ics.ComponentPropertySummary); p != nil {
		event.Title = p.Value
	}
	if p := ve.GetProperty(ics.ComponentPropertyDescription); p != nil {
		event.Description = p.Value
	}

	if p := ve.GetProperty(ics.ComponentPropertyDtstamp); p != nil {
		stamp, err := time.Parse(icsUTCLayout, p.Value)
		if err != nil {
			return event, fmt.Errorf("VEVENT %s: bad DTSTAMP %q: %w", event.UID, p.Value, err)
		}
		event.CreatedAt = stamp
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return event, fmt.Errorf("VEVENT %s: bad DTSTART: %w", event.UID, err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return event, fmt.Errorf("VEVENT %s: bad DTEND: %w", event.UID, err)
	}
	event.Start = start
	event.End = end

	return event, nil
}
