package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/mirassol-cal/app/calendar"
	"github.com/lysyi3m/mirassol-cal/app/config"
	"github.com/lysyi3m/mirassol-cal/app/database"
	"github.com/lysyi3m/mirassol-cal/app/scraper"
)

// Notifier delivers a run summary to an external channel. A nil notifier
// disables delivery; a failed delivery is logged and never fails the run.
type Notifier interface {
	SendSummary(ctx context.Context, summary Summary) error
}

// Processor runs the full pipeline: scrape both source views, normalize
// and canonicalize them, refresh the snapshot, then converge the remote
// calendar and record the run.
type Processor struct {
	clubConfig    *config.ClubConfig
	fetcher       *scraper.Fetcher
	parser        *scraper.Parser
	normalizer    *scraper.Normalizer
	canonicalizer *calendar.Canonicalizer
	snapshot      *calendar.Store
	differ        *Differ
	store         RemoteStore
	reconciler    *Reconciler
	mappings      database.MappingRepository
	runs          database.RunRepository
	notifier      Notifier
	calendarID    string
}

func NewProcessor(clubConfig *config.ClubConfig, fetcher *scraper.Fetcher, parser *scraper.Parser,
	snapshot *calendar.Store, store RemoteStore, mappings database.MappingRepository,
	runs database.RunRepository, notifier Notifier, calendarID string) *Processor {
	return &Processor{
		clubConfig:    clubConfig,
		fetcher:       fetcher,
		parser:        parser,
		normalizer:    scraper.NewNormalizer(clubConfig.Events.DefaultYear, clubConfig.Events.FallbackKickoff),
		canonicalizer: calendar.NewCanonicalizer(clubConfig.Calendar.GetLocation(), clubConfig.Events.GetDuration(), clubConfig.Events.UIDDomain),
		snapshot:      snapshot,
		differ:        NewDiffer(),
		store:         store,
		reconciler:    NewReconciler(store, mappings),
		mappings:      mappings,
		runs:          runs,
		notifier:      notifier,
		calendarID:    calendarID,
	}
}

// Run executes one complete synchronization run
func (p *Processor) Run(ctx context.Context) (Summary, error) {
	startedAt := time.Now().UTC()

	plan, skippedRows, err := p.scrape(ctx, startedAt)
	if err != nil {
		return Summary{}, err
	}

	remoteRef, skippedUnmanaged, err := p.loadRemoteReference(ctx)
	if err != nil {
		return Summary{}, err
	}

	remotePlan := p.differ.Run(plan.Events(), remoteRef, startedAt)
	result, err := p.reconciler.Run(ctx, p.calendarID, remotePlan)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		StartedAt:        startedAt,
		FinishedAt:       time.Now().UTC(),
		TotalEvents:      len(plan.Events()),
		Created:          result.Created,
		Updated:          result.Updated,
		Deleted:          result.Deleted,
		Failed:           result.Failed,
		SkippedRows:      skippedRows,
		SkippedUnmanaged: skippedUnmanaged,
	}

	if err := p.runs.RecordRun(database.SyncRun{
		StartedAt:        summary.StartedAt,
		FinishedAt:       summary.FinishedAt,
		TotalEvents:      summary.TotalEvents,
		Created:          summary.Created,
		Updated:          summary.Updated,
		Deleted:          summary.Deleted,
		Failed:           summary.Failed,
		SkippedRows:      summary.SkippedRows,
		SkippedUnmanaged: summary.SkippedUnmanaged,
	}); err != nil {
		return summary, fmt.Errorf("failed to record run: %w", err)
	}

	if p.notifier != nil {
		if err := p.notifier.SendSummary(ctx, summary); err != nil {
			slog.Error("Failed to send run summary", "error", err)
		}
	}

	slog.Info("Synchronization run completed",
		"total", summary.TotalEvents,
		"created", summary.Created,
		"updated", summary.Updated,
		"deleted", summary.Deleted,
		"failed", summary.Failed,
		"skipped_rows", summary.SkippedRows,
		"duration", summary.FinishedAt.Sub(summary.StartedAt))

	return summary, nil
}

// Scrape refreshes the on-disk snapshot from the source views without
// touching the remote calendar.
func (p *Processor) Scrape(ctx context.Context) (int, int, error) {
	plan, skippedRows, err := p.scrape(ctx, time.Now().UTC())
	if err != nil {
		return 0, 0, err
	}
	return len(plan.Events()), skippedRows, nil
}

func (p *Processor) scrape(ctx context.Context, runTime time.Time) (Plan, int, error) {
	resultsData, err := p.fetcher.Run(ctx, p.clubConfig.Sources.ResultsURL)
	if err != nil {
		return Plan{}, 0, fmt.Errorf("failed to fetch results view: %w", err)
	}
	scheduleData, err := p.fetcher.Run(ctx, p.clubConfig.Sources.ScheduleURL)
	if err != nil {
		return Plan{}, 0, fmt.Errorf("failed to fetch schedule view: %w", err)
	}

	results, err := p.parser.ParseResults(resultsData)
	if err != nil {
		return Plan{}, 0, fmt.Errorf("failed to parse results view: %w", err)
	}
	schedule, err := p.parser.ParseSchedule(scheduleData)
	if err != nil {
		return Plan{}, 0, fmt.Errorf("failed to parse schedule view: %w", err)
	}

	records, skippedRows := p.normalizer.Run(results, schedule)
	canonical := p.canonicalizer.Run(records)

	reference, err := p.snapshot.Load()
	if err != nil {
		return Plan{}, 0, err
	}

	plan := p.differ.Run(canonical, reference, runTime)
	if err := p.snapshot.Save(plan.Events()); err != nil {
		return Plan{}, 0, err
	}

	slog.Info("Snapshot refreshed",
		"events", len(plan.Events()),
		"new", len(plan.ToCreate),
		"changed", len(plan.ToReplace),
		"removed", len(plan.ToDelete),
		"skipped_rows", skippedRows)

	return plan, skippedRows, nil
}

// loadRemoteReference lists the remote calendar and joins it with the
// mapping table. Remote events without a mapping were not created by
// this service; they are left untouched and only counted.
func (p *Processor) loadRemoteReference(ctx context.Context) ([]calendar.Event, int, error) {
	remote, err := p.store.ListEvents(ctx, p.calendarID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list remote events: %w", err)
	}

	byUID, err := p.mappings.GetAll(p.calendarID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load mappings: %w", err)
	}
	uidByRemote := make(map[string]string, len(byUID))
	for uid, remoteID := range byUID {
		uidByRemote[remoteID] = uid
	}

	var reference []calendar.Event
	unmanaged := 0
	for _, re := range remote {
		uid, ok := uidByRemote[re.RemoteID]
		if !ok {
			unmanaged++
			continue
		}
		reference = append(reference, calendar.Event{
			UID:         uid,
			Title:       re.Title,
			Description: re.Description,
			Start:       re.Start,
			End:         re.End,
		})
	}

	if unmanaged > 0 {
		slog.Debug("Skipped unmanaged remote events", "count", unmanaged)
	}

	return reference, unmanaged, nil
}
