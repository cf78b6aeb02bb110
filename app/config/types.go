package config

// ClubConfig represents the complete club configuration
type ClubConfig struct {
	Club     ClubInfo     `yaml:"club"`
	Calendar CalendarInfo `yaml:"calendar"`
	Sources  Sources      `yaml:"sources"`
	Events   EventRules   `yaml:"events"`
}

// ClubInfo contains basic club information
type ClubInfo struct {
	Name string `yaml:"name"`
}

// CalendarInfo describes the remote calendar to converge
type CalendarInfo struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Timezone    string `yaml:"timezone"`
	ColorID     string `yaml:"color_id"`
}

// Sources contains the scraped source views
type Sources struct {
	ResultsURL  string `yaml:"results_url"`
	ScheduleURL string `yaml:"schedule_url"`
	Timeout     int    `yaml:"timeout"` // seconds
}

// EventRules controls how scraped fixtures become calendar events
type EventRules struct {
	// DefaultYear is assumed when a scraped date carries no four-digit year
	DefaultYear int `yaml:"default_year"`
	// FallbackKickoff is used when the source lists no kickoff time
	FallbackKickoff string `yaml:"fallback_kickoff"`
	// DurationHours is the fixed event length
	DurationHours int `yaml:"duration_hours"`
	// UIDDomain suffixes event identifiers in the ICS output
	UIDDomain string `yaml:"uid_domain"`
}
