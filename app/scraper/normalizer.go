package scraper

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	weekdayPrefix = regexp.MustCompile(`^[a-z]+\.?,\s*`)
	dayMonthShape = regexp.MustCompile(`(\d{1,2})\s+([a-z]+)`)
	yearShape     = regexp.MustCompile(`\d{4}`)
	kickoffShape  = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// months maps Portuguese month name prefixes in calendar order. A scraped
// month token matches when it extends one of these prefixes, or when it is
// itself a prefix of the full name.
var months = []struct {
	abbr string
	full string
	num  time.Month
}{
	{"jan", "janeiro", time.January},
	{"fev", "fevereiro", time.February},
	{"mar", "marco", time.March},
	{"abr", "abril", time.April},
	{"mai", "maio", time.May},
	{"jun", "junho", time.June},
	{"jul", "julho", time.July},
	{"ago", "agosto", time.August},
	{"set", "setembro", time.September},
	{"out", "outubro", time.October},
	{"nov", "novembro", time.November},
	{"dez", "dezembro", time.December},
}

// statusWords are tokens the results view sometimes renders in the
// championship column instead of the championship name.
var statusWords = map[string]bool{
	"finalizado": true,
	"final":      true,
	"encerrado":  true,
	"terminado":  true,
	"concluido":  true,
	"ft":         true,
}

// Normalizer turns raw scraped rows into GameRecords. Rows that cannot be
// normalized are skipped and counted, never fatal to the batch.
type Normalizer struct {
	defaultYear     int
	fallbackKickoff string
}

// NewNormalizer creates a normalizer with the configured fallback year and
// kickoff time.
func NewNormalizer(defaultYear int, fallbackKickoff string) *Normalizer {
	return &Normalizer{
		defaultYear:     defaultYear,
		fallbackKickoff: fallbackKickoff,
	}
}

// Run normalizes both row sequences and merges them into a single batch.
// It returns the normalized records and the number of skipped rows.
func (n *Normalizer) Run(results []ResultRow, schedule []ScheduleRow) ([]GameRecord, int) {
	records := make([]GameRecord, 0, len(results)+len(schedule))
	skipped := 0

	for i, row := range results {
		record, err := n.normalizeResult(row)
		if err != nil {
			slog.Debug("Skipping results row", "row", i, "error", err)
			skipped++
			continue
		}
		records = append(records, record)
	}

	for i, row := range schedule {
		record, err := n.normalizeSchedule(row)
		if err != nil {
			slog.Debug("Skipping schedule row", "row", i, "error", err)
			skipped++
			continue
		}
		records = append(records, record)
	}

	return records, skipped
}

func (n *Normalizer) normalizeResult(row ResultRow) (GameRecord, error) {
	if row.Date == "" || row.HomeTeam == "" || row.Score == "" {
		return GameRecord{}, &ParseError{Field: "row", Value: row.HomeTeam, Reason: "missing required column"}
	}

	date, err := n.parseDate(row.Date)
	if err != nil {
		return GameRecord{}, err
	}

	record := GameRecord{
		Date:         date,
		Kickoff:      n.fallbackKickoff,
		HomeTeam:     row.HomeTeam,
		AwayTeam:     row.AwayTeam,
		Championship: resolveChampionship(row.Championship, row.AltChampionship),
		Status:       StatusFinished,
	}

	score := parseScore(row.Score)
	if score == nil {
		// No recognizable score yet; the fixture has not been played.
		record.Status = StatusScheduled
	} else {
		record.Score = score
	}

	return record, nil
}

func (n *Normalizer) normalizeSchedule(row ScheduleRow) (GameRecord, error) {
	if row.Date == "" || row.HomeTeam == "" || row.AwayTeam == "" {
		return GameRecord{}, &ParseError{Field: "row", Value: row.HomeTeam, Reason: "missing required column"}
	}

	date, err := n.parseDate(row.Date)
	if err != nil {
		return GameRecord{}, err
	}

	kickoff, err := n.parseKickoff(row.Kickoff)
	if err != nil {
		return GameRecord{}, err
	}

	return GameRecord{
		Date:         date,
		Kickoff:      kickoff,
		HomeTeam:     row.HomeTeam,
		AwayTeam:     row.AwayTeam,
		Championship: row.Championship,
		Status:       StatusScheduled,
	}, nil
}

// parseDate parses dates of the form "dom., 8 fev." or "qua., 11 fev. 2026".
// The weekday token is discarded, the month name is matched by prefix, and
// the configured default year applies when no four-digit year is present.
func (n *Normalizer) parseDate(value string) (time.Time, error) {
	folded := foldAccents(strings.ToLower(strings.TrimSpace(value)))
	folded = weekdayPrefix.ReplaceAllString(folded, "")

	match := dayMonthShape.FindStringSubmatch(folded)
	if match == nil {
		return time.Time{}, &ParseError{Field: "date", Value: value, Reason: "no day and month found"}
	}

	day, err := strconv.Atoi(match[1])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, &ParseError{Field: "date", Value: value, Reason: "day out of range"}
	}

	month, ok := matchMonth(match[2])
	if !ok {
		return time.Time{}, &ParseError{Field: "date", Value: value, Reason: "unknown month name"}
	}

	year := n.defaultYear
	if y := yearShape.FindString(folded); y != "" {
		year, _ = strconv.Atoi(y)
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

// parseKickoff normalizes the kickoff column. "A definir" and empty values
// yield the fallback kickoff; anything else must be a valid HH:MM time.
func (n *Normalizer) parseKickoff(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.Contains(foldAccents(strings.ToLower(value)), "definir") {
		return n.fallbackKickoff, nil
	}

	match := kickoffShape.FindStringSubmatch(value)
	if match == nil {
		return "", &ParseError{Field: "time", Value: value, Reason: "not an HH:MM time"}
	}

	hour, _ := strconv.Atoi(match[1])
	minute, _ := strconv.Atoi(match[2])
	if hour > 23 || minute > 59 {
		return "", &ParseError{Field: "time", Value: value, Reason: "hour or minute out of range"}
	}

	return value, nil
}

// parseScore splits "2 - 2" into its two sides. Input without a dash is
// not an error: the fixture simply has no score yet.
func parseScore(value string) *Score {
	value = strings.TrimSpace(value)
	if value == "" || !strings.Contains(value, "-") {
		return nil
	}

	parts := strings.SplitN(value, "-", 2)
	return &Score{
		Home: strings.TrimSpace(parts[0]),
		Away: strings.TrimSpace(parts[1]),
	}
}

// resolveChampionship applies the results-view heuristic: when the
// championship column carries a status word the real championship sits one
// column to the right, and a bare status word never counts as a name.
func resolveChampionship(championship, alt string) string {
	if championship == "" {
		return ""
	}
	if statusWords[foldAccents(strings.ToLower(championship))] {
		if alt != "" && !statusWords[foldAccents(strings.ToLower(alt))] {
			return alt
		}
		return ""
	}
	return championship
}

func matchMonth(token string) (time.Month, bool) {
	for _, m := range months {
		if strings.HasPrefix(token, m.abbr) {
			return m.num, true
		}
		if len(token) >= 3 && strings.HasPrefix(m.full, token) {
			return m.num, true
		}
	}
	return 0, false
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldAccents strips combining marks so "sáb." and "março" compare equal
// to their unaccented spellings.
func foldAccents(s string) string {
	out, _, err := transform.String(accentFolder, s)
	if err != nil {
		return s
	}
	return out
}
