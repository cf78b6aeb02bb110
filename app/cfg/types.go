package cfg

type Cfg struct {
	// File locations
	ConfigFile     string
	SnapshotFile   string
	DBPath         string
	CalendarIDFile string

	// Remote store credentials
	ServiceAccountFile string
	ServiceAccountKey  string

	// Serve mode configuration
	Port         string
	SyncSchedule string

	// Notifications
	TelegramToken  string
	TelegramChatID int64

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
