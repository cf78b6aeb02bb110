package scraper

import (
	"fmt"
	"time"
)

// GameStatus indicates whether a fixture has been played
type GameStatus string

const (
	StatusScheduled GameStatus = "scheduled"
	StatusFinished  GameStatus = "finished"
)

// ResultRow holds the raw text fields of one row scraped from the
// results view. Fields are untrimmed beyond basic whitespace stripping
// and carry whatever the source rendered.
type ResultRow struct {
	Date         string
	HomeTeam     string
	Score        string
	AwayTeam     string
	Championship string
	// AltChampionship is the next column over; on the results view the
	// championship column sometimes carries a status word ("Finalizado")
	// and the real championship shifts one column to the right.
	AltChampionship string
}

// ScheduleRow holds the raw text fields of one row scraped from the
// schedule view.
type ScheduleRow struct {
	Date         string
	HomeTeam     string
	AwayTeam     string
	Kickoff      string
	Championship string
}

// Score is a fixture result, both sides kept as the source's text
type Score struct {
	Home string
	Away string
}

func (s Score) String() string {
	return s.Home + " - " + s.Away
}

// GameRecord is one normalized fixture. Created by the Normalizer from a
// single scraped row and immutable afterwards.
//
// Invariant: Score is non-nil iff Status is StatusFinished.
type GameRecord struct {
	Date         time.Time // civil date, zero time of day
	Kickoff      string    // HH:MM
	HomeTeam     string
	AwayTeam     string
	Score        *Score
	Championship string
	Status       GameStatus
}

// ParseError reports a row-level parsing failure. Rows failing with a
// ParseError are skipped and counted, never fatal to the batch.
type ParseError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s %q: %s", e.Field, e.Value, e.Reason)
}
