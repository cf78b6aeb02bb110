package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// File locations
	ConfigFile     string `long:"config" env:"CONFIG_FILE" default:"./config.yaml" description:"Path to the club configuration file"`
	SnapshotFile   string `long:"snapshot" env:"SNAPSHOT_FILE" default:"./mirassol_futebol_clube.ics" description:"Path to the ICS snapshot file"`
	DBPath         string `long:"db-path" env:"DB_PATH" default:"./mirassol-cal.db" description:"Path to the SQLite database file"`
	CalendarIDFile string `long:"calendar-id-file" env:"CALENDAR_ID_FILE" default:"./mirassolfc_calendar_id.txt" description:"File caching the remote calendar ID"`

	// Remote store credentials
	ServiceAccountFile string `long:"service-account" env:"GOOGLE_APPLICATION_CREDENTIALS" default:"./service-account.json" description:"Path to a Google service account key file"`
	ServiceAccountKey  string `long:"service-account-key" env:"SERVICE_ACCOUNT_KEY" description:"Google service account key as a raw JSON string"`

	// Serve mode configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	SyncSchedule string `long:"sync-schedule" env:"SYNC_SCHEDULE" default:"0 6 * * *" description:"Cron expression for scheduled synchronization runs"`

	// Notifications
	TelegramToken  string `long:"telegram-token" env:"TELEGRAM_TOKEN" description:"Telegram bot token for run summaries (optional)"`
	TelegramChatID int64  `long:"telegram-chat-id" env:"TELEGRAM_CHAT_ID" description:"Telegram chat ID for run summaries"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36" description:"User agent string for scraping requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load parses command-line flags and environment variables. The remaining
// positional arguments (the subcommand and its parameters) are returned to
// the caller. A nil Cfg with a nil error means help was requested.
func Load(args []string) (*Cfg, []string, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	rest, err := parser.ParseArgs(args)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil, nil
			}
		}
		return nil, nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		ConfigFile:         raw.ConfigFile,
		SnapshotFile:       raw.SnapshotFile,
		DBPath:             raw.DBPath,
		CalendarIDFile:     raw.CalendarIDFile,
		ServiceAccountFile: raw.ServiceAccountFile,
		ServiceAccountKey:  raw.ServiceAccountKey,
		Port:               raw.Port,
		SyncSchedule:       raw.SyncSchedule,
		TelegramToken:      raw.TelegramToken,
		TelegramChatID:     raw.TelegramChatID,
		UserAgent:          raw.UserAgent,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	globalCfg = cfg

	return cfg, rest, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests.
func Set(c *Cfg) {
	globalCfg = c
}
