package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/mirassol-cal/app/api"
	"github.com/lysyi3m/mirassol-cal/app/calendar"
	"github.com/lysyi3m/mirassol-cal/app/cfg"
	"github.com/lysyi3m/mirassol-cal/app/config"
	"github.com/lysyi3m/mirassol-cal/app/database"
	"github.com/lysyi3m/mirassol-cal/app/gcal"
	"github.com/lysyi3m/mirassol-cal/app/notify"
	"github.com/lysyi3m/mirassol-cal/app/scraper"
	"github.com/lysyi3m/mirassol-cal/app/sync"
	"github.com/lysyi3m/mirassol-cal/app/tasks"
)

func main() {
	c, args, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if c == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	command := "serve"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	if err := run(command, args); err != nil {
		slog.Error("Command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	switch command {
	case "scrape":
		return runScrape()
	case "sync":
		return runSync()
	case "serve":
		return runServe()
	case "calendars":
		return runCalendars(args)
	default:
		return fmt.Errorf("unknown command %q (expected scrape, sync, serve or calendars)", command)
	}
}

// runScrape refreshes the ICS snapshot without touching the remote
// calendar or the database.
func runScrape() error {
	clubConfig, err := loadClubConfig()
	if err != nil {
		return err
	}

	processor := newProcessor(clubConfig, nil, nil, nil, nil, "")

	total, skipped, err := processor.Scrape(context.Background())
	if err != nil {
		return err
	}

	slog.Info("Scrape completed", "events", total, "skipped_rows", skipped, "snapshot", cfg.Get().SnapshotFile)
	return nil
}

// runSync executes one full synchronization run and exits
func runSync() error {
	clubConfig, err := loadClubConfig()
	if err != nil {
		return err
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()

	client, manager, err := newRemote(clubConfig)
	if err != nil {
		return err
	}

	calendarID, err := manager.GetOrCreate(ctx, clubConfig.Calendar.Name,
		clubConfig.Calendar.Description, clubConfig.Calendar.Timezone, clubConfig.Calendar.ColorID)
	if err != nil {
		return fmt.Errorf("failed to resolve calendar: %w", err)
	}

	processor := newProcessor(clubConfig, client,
		database.NewMappingRepository(db), database.NewRunRepository(db), newNotifier(clubConfig), calendarID)

	if _, err := processor.Run(ctx); err != nil {
		return err
	}
	return nil
}

// runServe runs the scheduler loop and the HTTP server until interrupted
func runServe() error {
	c := cfg.Get()

	clubConfig, err := loadClubConfig()
	if err != nil {
		return err
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	client, manager, err := newRemote(clubConfig)
	if err != nil {
		return err
	}

	calendarID, err := manager.GetOrCreate(context.Background(), clubConfig.Calendar.Name,
		clubConfig.Calendar.Description, clubConfig.Calendar.Timezone, clubConfig.Calendar.ColorID)
	if err != nil {
		return fmt.Errorf("failed to resolve calendar: %w", err)
	}

	runs := database.NewRunRepository(db)
	processor := newProcessor(clubConfig, client,
		database.NewMappingRepository(db), runs, newNotifier(clubConfig), calendarID)

	scheduler := tasks.NewScheduler(tasks.RunnerFunc(func(ctx context.Context) error {
		_, err := processor.Run(ctx)
		return err
	}), c.SyncSchedule)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	snapshot := calendar.NewStore(c.SnapshotFile,
		calendar.NewGenerator(clubConfig.Calendar.Name, clubConfig.Calendar.Timezone))
	handler := api.NewHandler(clubConfig, snapshot, runs)

	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      api.NewServer(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", c.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down", "signal", sig.String())
	case err := <-serverErrChan:
		return fmt.Errorf("HTTP server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	return nil
}

// runCalendars handles calendar management subcommands
func runCalendars(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing calendars subcommand (expected list, create, delete or share)")
	}

	clubConfig, err := loadClubConfig()
	if err != nil {
		return err
	}

	_, manager, err := newRemote(clubConfig)
	if err != nil {
		return err
	}

	ctx := context.Background()

	switch args[0] {
	case "list":
		calendars, err := manager.ListCalendars(ctx)
		if err != nil {
			return err
		}
		for _, cal := range calendars {
			marker := " "
			if cal.Primary {
				marker = "*"
			}
			fmt.Printf("%s %-50s %s\n", marker, cal.Summary, cal.ID)
		}
		return nil

	case "create":
		id, err := manager.GetOrCreate(ctx, clubConfig.Calendar.Name,
			clubConfig.Calendar.Description, clubConfig.Calendar.Timezone, clubConfig.Calendar.ColorID)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: calendars delete <calendar-id>")
		}
		return manager.DeleteCalendar(ctx, args[1])

	case "share":
		if len(args) < 3 {
			return fmt.Errorf("usage: calendars share <calendar-id> <email> [role]")
		}
		role := "reader"
		if len(args) > 3 {
			role = args[3]
		}
		return manager.ShareCalendar(ctx, args[1], args[2], role)

	default:
		return fmt.Errorf("unknown calendars subcommand %q", args[0])
	}
}

func loadClubConfig() (*config.ClubConfig, error) {
	loader := config.NewLoader(cfg.Get().ConfigFile)
	clubConfig, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load club configuration: %w", err)
	}
	return clubConfig, nil
}

func openDatabase() (*database.DB, error) {
	db, err := database.NewConnection(cfg.Get().DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Database ready", "schema_version", version, "dirty", dirty)

	return db, nil
}

func newRemote(clubConfig *config.ClubConfig) (*gcal.Client, *gcal.Manager, error) {
	c := cfg.Get()

	tokens, err := gcal.NewTokenSource(c.ServiceAccountFile, c.ServiceAccountKey)
	if err != nil {
		return nil, nil, err
	}

	client := gcal.NewClient(tokens, clubConfig.Calendar.Timezone)
	return client, gcal.NewManager(client, c.CalendarIDFile), nil
}

func newProcessor(clubConfig *config.ClubConfig, store sync.RemoteStore,
	mappings database.MappingRepository, runs database.RunRepository,
	notifier sync.Notifier, calendarID string) *sync.Processor {
	c := cfg.Get()

	snapshot := calendar.NewStore(c.SnapshotFile,
		calendar.NewGenerator(clubConfig.Calendar.Name, clubConfig.Calendar.Timezone))

	return sync.NewProcessor(clubConfig,
		scraper.NewFetcher(clubConfig.Sources.GetTimeout(), c.UserAgent),
		scraper.NewParser(), snapshot, store, mappings, runs, notifier, calendarID)
}

// newNotifier returns a Telegram notifier when configured, or nil
func newNotifier(clubConfig *config.ClubConfig) sync.Notifier {
	c := cfg.Get()
	if c.TelegramToken == "" || c.TelegramChatID == 0 {
		return nil
	}

	notifier, err := notify.NewTelegramNotifier(c.TelegramToken, c.TelegramChatID, clubConfig.Club.Name)
	if err != nil {
		slog.Warn("Telegram notifier disabled", "error", err)
		return nil
	}
	return notifier
}
