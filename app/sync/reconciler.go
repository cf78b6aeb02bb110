package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/mirassol-cal/app/database"
)

// Result counts the remote operations of one reconciliation pass
type Result struct {
	Created int
	Updated int
	Deleted int
	Failed  int
}

// Reconciler applies a Plan against the remote store. Deletions run
// first, then replacements, then creations; within a single identifier
// operations are strictly sequenced so a delete-then-create never leaves
// both copies live. A failed remote operation is logged and counted, and
// the batch continues; only mapping-table failures abort the run.
type Reconciler struct {
	store    RemoteStore
	mappings database.MappingRepository
}

// NewReconciler creates a reconciler over the given remote store and
// identifier mapping table.
func NewReconciler(store RemoteStore, mappings database.MappingRepository) *Reconciler {
	return &Reconciler{store: store, mappings: mappings}
}

// Run converges the remote calendar to the plan's canonical set
func (r *Reconciler) Run(ctx context.Context, calendarID string, plan Plan) (Result, error) {
	var res Result

	// Cleanup before insert
	for _, uid := range plan.ToDelete {
		remoteID, err := r.mappings.GetRemoteID(calendarID, uid)
		if err != nil {
			return res, fmt.Errorf("failed to look up mapping for %s: %w", uid, err)
		}
		if remoteID == "" {
			// Never tracked remotely; nothing to converge
			continue
		}

		if err := r.store.DeleteEvent(ctx, calendarID, remoteID); err != nil {
			slog.Error("Failed to delete remote event", "uid", uid, "remote_id", remoteID, "error", err)
			res.Failed++
			continue
		}
		if err := r.mappings.Delete(calendarID, uid); err != nil {
			return res, fmt.Errorf("failed to delete mapping for %s: %w", uid, err)
		}

		slog.Info("Deleted remote event", "uid", uid)
		res.Deleted++
	}

	// Changed events are replaced whole: the remote store exposes no
	// field-level update, so the old copy is deleted before the new one
	// is inserted.
	for _, event := range plan.ToReplace {
		remoteID, err := r.mappings.GetRemoteID(calendarID, event.UID)
		if err != nil {
			return res, fmt.Errorf("failed to look up mapping for %s: %w", event.UID, err)
		}

		if remoteID != "" {
			if err := r.store.DeleteEvent(ctx, calendarID, remoteID); err != nil {
				// Leave the stale copy in place rather than risk two
				// live copies of the same fixture.
				slog.Error("Failed to delete outdated remote event", "uid", event.UID, "error", err)
				res.Failed++
				continue
			}
			if err := r.mappings.Delete(calendarID, event.UID); err != nil {
				return res, fmt.Errorf("failed to delete mapping for %s: %w", event.UID, err)
			}
		}

		newID, err := r.store.CreateEvent(ctx, calendarID, event)
		if err != nil {
			slog.Error("Failed to recreate remote event", "uid", event.UID, "title", event.Title, "error", err)
			res.Failed++
			continue
		}
		if err := r.mappings.Upsert(calendarID, event.UID, newID); err != nil {
			return res, fmt.Errorf("failed to store mapping for %s: %w", event.UID, err)
		}

		slog.Info("Replaced remote event", "uid", event.UID, "title", event.Title)
		res.Updated++
	}

	for _, event := range plan.ToCreate {
		remoteID, err := r.store.CreateEvent(ctx, calendarID, event)
		if err != nil {
			slog.Error("Failed to create remote event", "uid", event.UID, "title", event.Title, "error", err)
			res.Failed++
			continue
		}
		if err := r.mappings.Upsert(calendarID, event.UID, remoteID); err != nil {
			return res, fmt.Errorf("failed to store mapping for %s: %w", event.UID, err)
		}

		slog.Info("Created remote event", "uid", event.UID, "title", event.Title)
		res.Created++
	}

	return res, nil
}
