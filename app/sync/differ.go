package sync

import (
	"time"

	"github.com/lysyi3m/mirassol-cal/app/calendar"
)

// Differ classifies a canonical event set against a reference set keyed
// by UID. Classification depends only on the two sets' content, never on
// iteration order; the run time is used solely to stamp CreatedAt on new
// and changed events, consistently for the whole run.
type Differ struct{}

// NewDiffer creates a new diff engine
func NewDiffer() *Differ {
	return &Differ{}
}

// Run computes the reconciliation plan. The reference set is whichever
// prior state applies: the on-disk snapshot or the remote listing.
func (d *Differ) Run(canonical, reference []calendar.Event, runTime time.Time) Plan {
	refIndex := make(map[string]calendar.Event, len(reference))
	for _, event := range reference {
		refIndex[event.UID] = event
	}

	var plan Plan
	seen := make(map[string]bool, len(canonical))

	for _, event := range canonical {
		if seen[event.UID] {
			// The same fixture can surface on both scraped views; the
			// first canonicalization wins.
			continue
		}
		seen[event.UID] = true

		ref, ok := refIndex[event.UID]
		if !ok {
			event.CreatedAt = runTime
			plan.ToCreate = append(plan.ToCreate, event)
		} else if contentEqual(event, ref) {
			event.CreatedAt = ref.CreatedAt
			plan.Unchanged = append(plan.Unchanged, event)
		} else {
			event.CreatedAt = runTime
			plan.ToReplace = append(plan.ToReplace, event)
		}

		plan.resolved = append(plan.resolved, event)
	}

	for _, event := range reference {
		if !seen[event.UID] {
			plan.ToDelete = append(plan.ToDelete, event.UID)
		}
	}

	return plan
}

// contentEqual compares the observable content of two events. CreatedAt
// is deliberately excluded: it is an artifact of prior runs, not content.
func contentEqual(a, b calendar.Event) bool {
	return a.Title == b.Title &&
		a.Description == b.Description &&
		a.Start.Equal(b.Start) &&
		a.End.Equal(b.End)
}
