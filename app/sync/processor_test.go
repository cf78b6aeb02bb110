package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/lysyi3m/mirassol-cal/app/calendar"
	"github.com/lysyi3m/mirassol-cal/app/config"
	"github.com/lysyi3m/mirassol-cal/app/database"
	"github.com/lysyi3m/mirassol-cal/app/scraper"
)

type memoryRuns struct {
	recorded []database.SyncRun
}

func (m *memoryRuns) RecordRun(run database.SyncRun) error {
	m.recorded = append(m.recorded, run)
	return nil
}

func (m *memoryRuns) GetLatestRun() (*database.SyncRun, error) {
	if len(m.recorded) == 0 {
		return nil, nil
	}
	run := m.recorded[len(m.recorded)-1]
	return &run, nil
}

func (m *memoryRuns) GetTotals() (database.RunTotals, error) {
	var totals database.RunTotals
	for _, run := range m.recorded {
		totals.Runs++
		totals.Created += run.Created
		totals.Updated += run.Updated
		totals.Deleted += run.Deleted
		totals.Failed += run.Failed
	}
	return totals, nil
}

const resultsPage = `<html><body><table>
<tr><th>Data</th><th>Mandante</th><th>Placar</th><th>Visitante</th><th>Campeonato</th></tr>
<tr><td>Dom, 8 mar</td><td>Mirassol</td><td>2 - 1</td><td>Santos</td><td>Finalizado</td><td>Paulistão</td></tr>
</table></body></html>`

const schedulePage = `<html><body><table>
<tr><th>Data</th><th>Mandante</th><th></th><th>Visitante</th><th>Horário</th><th>Campeonato</th></tr>
<tr><td>Sáb, 4 abr</td><td>Mirassol</td><td>v</td><td>Palmeiras</td><td>18:30</td><td>Brasileirão</td></tr>
<tr><td>Dom, 12 abr</td><td>Flamengo</td><td>v</td><td>Mirassol</td><td>A definir</td><td>Brasileirão</td></tr>
</table></body></html>`

func newTestProcessor(t *testing.T, server *httptest.Server, store RemoteStore,
	mappings database.MappingRepository, runs database.RunRepository) *Processor {
	t.Helper()

	clubConfig := &config.ClubConfig{
		Club: config.ClubInfo{Name: "Mirassol FC"},
		Calendar: config.CalendarInfo{
			Name:     "Mirassol Futebol Clube",
			Timezone: "America/Sao_Paulo",
		},
		Sources: config.Sources{
			ResultsURL:  server.URL + "/results",
			ScheduleURL: server.URL + "/schedule",
			Timeout:     5,
		},
		Events: config.EventRules{
			DefaultYear:     2026,
			FallbackKickoff: "18:00",
			DurationHours:   2,
			UIDDomain:       "mirassol.local",
		},
	}

	snapshot := calendar.NewStore(
		filepath.Join(t.TempDir(), "mirassol_futebol_clube.ics"),
		calendar.NewGenerator(clubConfig.Calendar.Name, clubConfig.Calendar.Timezone))

	return NewProcessor(clubConfig, scraper.NewFetcher(5*time.Second, "test-agent"),
		scraper.NewParser(), snapshot, store, mappings, runs, nil, "cal-1")
}

func TestProcessorRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/results" {
			w.Write([]byte(resultsPage))
			return
		}
		w.Write([]byte(schedulePage))
	}))
	defer server.Close()

	store := newFakeRemoteStore()
	mappings := newMemoryMappings()
	runs := &memoryRuns{}

	processor := newTestProcessor(t, server, store, mappings, runs)

	summary, err := processor.Run(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if summary.TotalEvents != 3 {
		t.Errorf("Expected 3 events, got %d", summary.TotalEvents)
	}
	if summary.Created != 3 || summary.Updated != 0 || summary.Deleted != 0 || summary.Failed != 0 {
		t.Errorf("Expected 3 creates only, got %+v", summary)
	}
	if len(store.events) != 3 {
		t.Errorf("Expected 3 remote events, got %d", len(store.events))
	}
	if len(runs.recorded) != 1 {
		t.Fatalf("Expected 1 recorded run, got %d", len(runs.recorded))
	}

	titles := make(map[string]bool)
	for _, e := range store.events {
		titles[e.Title] = true
	}
	for _, want := range []string{
		"Mirassol 2 - 1 Santos - Paulistão",
		"Mirassol x Palmeiras - Brasileirão",
		"Flamengo x Mirassol - Brasileirão",
	} {
		if !titles[want] {
			t.Errorf("Expected remote event titled %q, got %v", want, titles)
		}
	}
}

func TestProcessorRunIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/results" {
			w.Write([]byte(resultsPage))
			return
		}
		w.Write([]byte(schedulePage))
	}))
	defer server.Close()

	store := newFakeRemoteStore()
	mappings := newMemoryMappings()
	runs := &memoryRuns{}

	processor := newTestProcessor(t, server, store, mappings, runs)
	ctx := context.Background()

	if _, err := processor.Run(ctx); err != nil {
		t.Fatalf("Expected no error on first run, got %v", err)
	}

	summary, err := processor.Run(ctx)
	if err != nil {
		t.Fatalf("Expected no error on second run, got %v", err)
	}

	if summary.Created != 0 || summary.Updated != 0 || summary.Deleted != 0 {
		t.Errorf("Expected no operations on unchanged input, got %+v", summary)
	}
	if len(store.events) != 3 {
		t.Errorf("Expected 3 remote events, got %d", len(store.events))
	}
}

func TestProcessorRunReplacesChangedFixture(t *testing.T) {
	// The Palmeiras fixture moves from the schedule view to the results
	// view once it is played; the identifier must survive and the remote
	// copy must be replaced, not duplicated.
	played := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/results" {
			if played {
				w.Write([]byte(`<html><body><table>
<tr><td>Dom, 8 mar</td><td>Mirassol</td><td>2 - 1</td><td>Santos</td><td>Finalizado</td><td>Paulistão</td></tr>
<tr><td>Sáb, 4 abr</td><td>Mirassol</td><td>1 - 0</td><td>Palmeiras</td><td>Finalizado</td><td>Brasileirão</td></tr>
</table></body></html>`))
			} else {
				w.Write([]byte(resultsPage))
			}
			return
		}
		w.Write([]byte(schedulePage))
	}))
	defer server.Close()

	store := newFakeRemoteStore()
	mappings := newMemoryMappings()
	runs := &memoryRuns{}

	processor := newTestProcessor(t, server, store, mappings, runs)
	ctx := context.Background()

	if _, err := processor.Run(ctx); err != nil {
		t.Fatalf("Expected no error on first run, got %v", err)
	}

	played = true
	summary, err := processor.Run(ctx)
	if err != nil {
		t.Fatalf("Expected no error on second run, got %v", err)
	}

	if summary.Updated != 1 || summary.Created != 0 || summary.Deleted != 0 {
		t.Errorf("Expected exactly 1 update, got %+v", summary)
	}
	if len(store.events) != 3 {
		t.Errorf("Expected 3 remote events, got %d", len(store.events))
	}

	titles := make(map[string]bool)
	for _, e := range store.events {
		titles[e.Title] = true
	}
	if !titles["Mirassol 1 - 0 Palmeiras - Brasileirão"] {
		t.Errorf("Expected the played fixture's title updated, got %v", titles)
	}
	if titles["Mirassol x Palmeiras - Brasileirão"] {
		t.Errorf("Expected the scheduled copy replaced, got %v", titles)
	}
}

func TestProcessorRunLeavesUnmanagedRemoteEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/results" {
			w.Write([]byte(resultsPage))
			return
		}
		w.Write([]byte(schedulePage))
	}))
	defer server.Close()

	store := newFakeRemoteStore()
	mappings := newMemoryMappings()
	runs := &memoryRuns{}
	ctx := context.Background()

	// A manually created appointment on the same calendar, unknown to
	// the mapping table.
	store.CreateEvent(ctx, "cal-1", calendar.Event{
		UID:   "manual",
		Title: "Dentista",
		Start: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 4, 1, 11, 0, 0, 0, time.UTC),
	})

	processor := newTestProcessor(t, server, store, mappings, runs)

	summary, err := processor.Run(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if summary.SkippedUnmanaged != 1 {
		t.Errorf("Expected 1 unmanaged remote event counted, got %d", summary.SkippedUnmanaged)
	}
	if len(store.events) != 4 {
		t.Errorf("Expected the unmanaged event untouched, got %d remote events", len(store.events))
	}

	found := false
	for _, e := range store.events {
		if e.Title == "Dentista" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected the unmanaged event to survive the run")
	}
}
