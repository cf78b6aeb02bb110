package calendar

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/mirassol-cal/app/scraper"
)

// Event is the calendar-ready, content-addressed representation of a
// fixture. It is recomputed from the current GameRecord set on every run;
// CreatedAt is decided later by the diff (inherited when content is
// unchanged, stamped with the run time otherwise).
type Event struct {
	UID         string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	CreatedAt   time.Time
}

// EventUID derives the stable identifier of a fixture. It hashes only the
// civil date and the two team names, so the identifier survives a score
// becoming known or a championship label changing.
func EventUID(date time.Time, homeTeam, awayTeam, domain string) string {
	content := fmt.Sprintf("%s|%s|%s",
		date.Format("2006-01-02"),
		homeTeam,
		awayTeam)

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:]) + "@" + domain
}

// Canonicalizer maps GameRecords to Events in a fixed civil time zone
type Canonicalizer struct {
	location  *time.Location
	duration  time.Duration
	uidDomain string
}

// NewCanonicalizer creates a canonicalizer bound to the configured zone,
// event duration and UID domain.
func NewCanonicalizer(location *time.Location, duration time.Duration, uidDomain string) *Canonicalizer {
	return &Canonicalizer{
		location:  location,
		duration:  duration,
		uidDomain: uidDomain,
	}
}

// Run canonicalizes a batch of records, keeping input order
func (c *Canonicalizer) Run(records []scraper.GameRecord) []Event {
	events := make([]Event, 0, len(records))
	for _, record := range records {
		events = append(events, c.canonicalize(record))
	}
	return events
}

func (c *Canonicalizer) canonicalize(record scraper.GameRecord) Event {
	event := Event{
		UID: EventUID(record.Date, record.HomeTeam, record.AwayTeam, c.uidDomain),
	}

	if record.Status == scraper.StatusFinished {
		result := fmt.Sprintf("%s %s %s", record.HomeTeam, record.Score, record.AwayTeam)
		if record.Championship != "" {
			event.Title = fmt.Sprintf("%s - %s", result, record.Championship)
		} else {
			event.Title = result + " - Finalizado"
		}
		event.Description = "Resultado: " + result
	} else {
		event.Title = fmt.Sprintf("%s x %s - %s", record.HomeTeam, record.AwayTeam, record.Championship)
		event.Description = record.Championship + " - Jogo agendado"
	}

	hour, minute := splitKickoff(record.Kickoff)
	event.Start = time.Date(record.Date.Year(), record.Date.Month(), record.Date.Day(),
		hour, minute, 0, 0, c.location)
	// Duration addition, not hour-field substitution: a 23:00 kickoff must
	// roll into the next day.
	event.End = event.Start.Add(c.duration)

	return event
}

// splitKickoff splits an HH:MM string already validated by the normalizer
func splitKickoff(kickoff string) (int, int) {
	parts := strings.SplitN(kickoff, ":", 2)
	hour, _ := strconv.Atoi(parts[0])
	minute := 0
	if len(parts) > 1 {
		minute, _ = strconv.Atoi(parts[1])
	}
	return hour, minute
}
