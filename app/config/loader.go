package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

var kickoffShape = regexp.MustCompile(`^\d{2}:\d{2}$`)

// Loader handles loading and validation of the club configuration
type Loader struct {
	path string
}

// NewLoader creates a new configuration loader
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads, validates and defaults the club configuration file
func (l *Loader) Load() (*ClubConfig, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config ClubConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	l.setDefaults(&config)

	if err := l.validate(&config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", l.path, err)
	}

	return &config, nil
}

// setDefaults applies default values to configuration
func (l *Loader) setDefaults(config *ClubConfig) {
	if config.Calendar.Timezone == "" {
		config.Calendar.Timezone = "America/Sao_Paulo"
	}
	if config.Calendar.ColorID == "" {
		config.Calendar.ColorID = "4" // Banana
	}
	if config.Sources.Timeout == 0 {
		config.Sources.Timeout = 10 // seconds
	}
	if config.Events.DefaultYear == 0 {
		config.Events.DefaultYear = 2026
	}
	if config.Events.FallbackKickoff == "" {
		config.Events.FallbackKickoff = "18:00"
	}
	if config.Events.DurationHours == 0 {
		config.Events.DurationHours = 2
	}
	if config.Events.UIDDomain == "" {
		config.Events.UIDDomain = "mirassol.local"
	}
}

// validate validates the configuration
func (l *Loader) validate(config *ClubConfig) error {
	if config.Club.Name == "" {
		return fmt.Errorf("club name is required")
	}
	if config.Calendar.Name == "" {
		return fmt.Errorf("calendar name is required")
	}
	if config.Sources.ResultsURL == "" {
		return fmt.Errorf("results URL is required")
	}
	if config.Sources.ScheduleURL == "" {
		return fmt.Errorf("schedule URL is required")
	}
	if config.Sources.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	if _, err := time.LoadLocation(config.Calendar.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", config.Calendar.Timezone, err)
	}
	if !kickoffShape.MatchString(config.Events.FallbackKickoff) {
		return fmt.Errorf("fallback kickoff must have HH:MM shape, got %q", config.Events.FallbackKickoff)
	}
	if config.Events.DurationHours < 0 {
		return fmt.Errorf("duration hours must be non-negative")
	}
	if config.Events.DefaultYear < 1900 || config.Events.DefaultYear > 2200 {
		return fmt.Errorf("default year out of range: %d", config.Events.DefaultYear)
	}

	return nil
}
