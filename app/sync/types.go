package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/lysyi3m/mirassol-cal/app/calendar"
)

// RemoteError reports a failed remote-store operation. Operation-level
// failures are counted and never abort the batch.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote store error %d: %s", e.Code, e.Message)
}

// RemoteEvent is one event as listed by the remote store
type RemoteEvent struct {
	RemoteID    string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

// RemoteStore is the port the reconciler converges. Implementations only
// need whole-event create and delete; there is no field-level update.
type RemoteStore interface {
	ListEvents(ctx context.Context, calendarID string) ([]RemoteEvent, error)
	CreateEvent(ctx context.Context, calendarID string, event calendar.Event) (string, error)
	DeleteEvent(ctx context.Context, calendarID, remoteID string) error
}

// Plan is the diff result. ToCreate, ToDelete and the present-in-both
// group (Unchanged plus ToReplace) partition the union of canonical and
// reference identifiers.
type Plan struct {
	// ToCreate holds canonical events absent from the reference
	ToCreate []calendar.Event
	// ToReplace holds canonical events whose reference copy differs in
	// title, description, start or end
	ToReplace []calendar.Event
	// Unchanged holds canonical events identical to their reference copy,
	// with the reference's CreatedAt inherited
	Unchanged []calendar.Event
	// ToDelete holds reference UIDs absent from the canonical set
	ToDelete []string

	// resolved keeps every canonical event with its resolved CreatedAt in
	// canonical input order, so the snapshot stays byte-stable across runs
	resolved []calendar.Event
}

// Events returns every canonical event with its resolved CreatedAt, in
// canonical input order. This is the set the snapshot is written from.
func (p Plan) Events() []calendar.Event {
	return p.resolved
}

// Summary aggregates the outcome of one synchronization run
type Summary struct {
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
