package config

import (
	"time"
)

// GetTimeout returns the scrape timeout as time.Duration
func (s *Sources) GetTimeout() time.Duration {
	if s.Timeout <= 0 {
		return 10 * time.Second // default 10 seconds
	}
	return time.Duration(s.Timeout) * time.Second
}

// GetDuration returns the fixed event length as time.Duration
func (e *EventRules) GetDuration() time.Duration {
	if e.DurationHours <= 0 {
		return 2 * time.Hour // default 2 hours
	}
	return time.Duration(e.DurationHours) * time.Hour
}

// GetLocation resolves the configured timezone. Validation at load time
// guarantees this cannot fail for a loaded configuration.
func (c *CalendarInfo) GetLocation() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
