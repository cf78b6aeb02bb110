package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lysyi3m/mirassol-cal/app/calendar"
)

type fakeRemoteStore struct {
	nextID  int
	events  map[string]calendar.Event
	failOps map[string]bool

	createdOrder []string
	deletedOrder []string
}

func newFakeRemoteStore() *fakeRemoteStore {
	return &fakeRemoteStore{
		events:  make(map[string]calendar.Event),
		failOps: make(map[string]bool),
	}
}

func (f *fakeRemoteStore) ListEvents(_ context.Context, _ string) ([]RemoteEvent, error) {
	var out []RemoteEvent
	for id, e := range f.events {
		out = append(out, RemoteEvent{
			RemoteID:    id,
			Title:       e.Title,
			Description: e.Description,
			Start:       e.Start,
			End:         e.End,
		})
	}
	return out, nil
}

func (f *fakeRemoteStore) CreateEvent(_ context.Context, _ string, event calendar.Event) (string, error) {
	if f.failOps["create:"+event.UID] {
		return "", &RemoteError{Code: 503, Message: "backend unavailable"}
	}
	f.nextID++
	id := fmt.Sprintf("remote-%d", f.nextID)
	f.events[id] = event
	f.createdOrder = append(f.createdOrder, event.UID)
	return id, nil
}

func (f *fakeRemoteStore) DeleteEvent(_ context.Context, _ string, remoteID string) error {
	if f.failOps["delete:"+remoteID] {
		return &RemoteError{Code: 500, Message: "backend error"}
	}
	if _, ok := f.events[remoteID]; !ok {
		return &RemoteError{Code: 404, Message: "not found"}
	}
	delete(f.events, remoteID)
	f.deletedOrder = append(f.deletedOrder, remoteID)
	return nil
}

type memoryMappings struct {
	byUID map[string]string
}

func newMemoryMappings() *memoryMappings {
	return &memoryMappings{byUID: make(map[string]string)}
}

func (m *memoryMappings) GetRemoteID(_, uid string) (string, error) {
	return m.byUID[uid], nil
}

func (m *memoryMappings) GetAll(_ string) (map[string]string, error) {
	out := make(map[string]string, len(m.byUID))
	for uid, id := range m.byUID {
		out[uid] = id
	}
	return out, nil
}

func (m *memoryMappings) Upsert(_, uid, remoteID string) error {
	m.byUID[uid] = remoteID
	return nil
}

func (m *memoryMappings) Delete(_, uid string) error {
	delete(m.byUID, uid)
	return nil
}

func TestReconcilerRunCreates(t *testing.T) {
	store := newFakeRemoteStore()
	mappings := newMemoryMappings()

	kickoff := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	plan := Plan{ToCreate: []calendar.Event{
		testEvent("a@mirassol.local", "Mirassol x Palmeiras - Brasileirão", kickoff),
		testEvent("b@mirassol.local", "Mirassol x Santos - Brasileirão", kickoff.AddDate(0, 0, 7)),
	}}

	res, err := NewReconciler(store, mappings).Run(context.Background(), "cal-1", plan)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if res.Created != 2 || res.Failed != 0 {
		t.Errorf("Expected 2 created and 0 failed, got %+v", res)
	}
	if len(store.events) != 2 {
		t.Errorf("Expected 2 remote events, got %d", len(store.events))
	}
	for _, uid := range []string{"a@mirassol.local", "b@mirassol.local"} {
		if mappings.byUID[uid] == "" {
			t.Errorf("Expected mapping stored for %s", uid)
		}
	}
}

func TestReconcilerRunDeletes(t *testing.T) {
	store := newFakeRemoteStore()
	mappings := newMemoryMappings()
	ctx := context.Background()

	kickoff := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	event := testEvent("a@mirassol.local", "Mirassol x Grêmio - Copa do Brasil", kickoff)
	remoteID, _ := store.CreateEvent(ctx, "cal-1", event)
	mappings.Upsert("cal-1", event.UID, remoteID)

	res, err := NewReconciler(store, mappings).Run(ctx, "cal-1", Plan{ToDelete: []string{event.UID}})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if res.Deleted != 1 {
		t.Errorf("Expected 1 deleted, got %+v", res)
	}
	if len(store.events) != 0 {
		t.Errorf("Expected remote event removed, %d remain", len(store.events))
	}
	if mappings.byUID[event.UID] != "" {
		t.Errorf("Expected mapping removed for %s", event.UID)
	}
}

func TestReconcilerRunSkipsUnmappedDelete(t *testing.T) {
	store := newFakeRemoteStore()
	mappings := newMemoryMappings()

	res, err := NewReconciler(store, mappings).Run(context.Background(), "cal-1",
		Plan{ToDelete: []string{"never-created@mirassol.local"}})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if res.Deleted != 0 || res.Failed != 0 {
		t.Errorf("Expected no operations for an untracked identifier, got %+v", res)
	}
}

func TestReconcilerRunReplaces(t *testing.T) {
	store := newFakeRemoteStore()
	mappings := newMemoryMappings()
	ctx := context.Background()

	kickoff := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	before := testEvent("a@mirassol.local", "Mirassol x Santos - Brasileirão", kickoff)
	oldID, _ := store.CreateEvent(ctx, "cal-1", before)
	mappings.Upsert("cal-1", before.UID, oldID)

	after := testEvent("a@mirassol.local", "Mirassol 2 - 1 Santos - Finalizado", kickoff)
	res, err := NewReconciler(store, mappings).Run(ctx, "cal-1", Plan{ToReplace: []calendar.Event{after}})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if res.Updated != 1 {
		t.Errorf("Expected 1 updated, got %+v", res)
	}
	if len(store.events) != 1 {
		t.Fatalf("Expected exactly 1 live remote copy, got %d", len(store.events))
	}

	newID := mappings.byUID[after.UID]
	if newID == "" || newID == oldID {
		t.Errorf("Expected a fresh remote id in the mapping, got %q (old %q)", newID, oldID)
	}
	if got := store.events[newID].Title; got != after.Title {
		t.Errorf("Expected remote copy updated to %q, got %q", after.Title, got)
	}

	// The stale copy must be gone before the replacement is inserted
	if len(store.deletedOrder) != 1 || store.deletedOrder[0] != oldID {
		t.Errorf("Expected old copy %s deleted first, got %v", oldID, store.deletedOrder)
	}
}

func TestReconcilerRunReplaceKeepsStaleCopyOnDeleteFailure(t *testing.T) {
	store := newFakeRemoteStore()
	mappings := newMemoryMappings()
	ctx := context.Background()

	kickoff := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	before := testEvent("a@mirassol.local", "Mirassol x Santos - Brasileirão", kickoff)
	oldID, _ := store.CreateEvent(ctx, "cal-1", before)
	mappings.Upsert("cal-1", before.UID, oldID)
	store.failOps["delete:"+oldID] = true

	after := testEvent("a@mirassol.local", "Mirassol 2 - 1 Santos - Finalizado", kickoff)
	res, err := NewReconciler(store, mappings).Run(ctx, "cal-1", Plan{ToReplace: []calendar.Event{after}})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if res.Failed != 1 || res.Updated != 0 {
		t.Errorf("Expected 1 failed and 0 updated, got %+v", res)
	}
	if len(store.events) != 1 {
		t.Errorf("Expected exactly 1 live remote copy, got %d", len(store.events))
	}
	if got := store.events[oldID].Title; got != before.Title {
		t.Errorf("Expected stale copy left in place, got %q", got)
	}
	if mappings.byUID[after.UID] != oldID {
		t.Errorf("Expected mapping still pointing at %s, got %q", oldID, mappings.byUID[after.UID])
	}
}

func TestReconcilerRunCountsFailuresAndContinues(t *testing.T) {
	store := newFakeRemoteStore()
	mappings := newMemoryMappings()

	kickoff := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	store.failOps["create:a@mirassol.local"] = true

	plan := Plan{ToCreate: []calendar.Event{
		testEvent("a@mirassol.local", "Mirassol x Palmeiras - Brasileirão", kickoff),
		testEvent("b@mirassol.local", "Mirassol x Santos - Brasileirão", kickoff.AddDate(0, 0, 7)),
	}}

	res, err := NewReconciler(store, mappings).Run(context.Background(), "cal-1", plan)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if res.Failed != 1 || res.Created != 1 {
		t.Errorf("Expected 1 failed and 1 created, got %+v", res)
	}
	if mappings.byUID["a@mirassol.local"] != "" {
		t.Errorf("Expected no mapping for the failed create")
	}
	if mappings.byUID["b@mirassol.local"] == "" {
		t.Errorf("Expected mapping for the successful create")
	}
}
