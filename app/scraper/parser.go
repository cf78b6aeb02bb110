package scraper

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Parser extracts fixture rows from the source's HTML table markup.
// The results and schedule views are kept as two independent typed row
// sequences; they are only merged after normalization.
type Parser struct{}

// NewParser creates a new HTML table parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseResults extracts raw rows from the results view
func (p *Parser) ParseResults(data []byte) ([]ResultRow, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse results page: %w", err)
	}

	var rows []ResultRow
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cols := tr.Find("td")
		if cols.Length() < 5 {
			return
		}
		rows = append(rows, ResultRow{
			Date:            cellText(cols, 0),
			HomeTeam:        cellText(cols, 1),
			Score:           cellText(cols, 2),
			AwayTeam:        cellText(cols, 3),
			Championship:    cellText(cols, 4),
			AltChampionship: cellText(cols, 5),
		})
	})

	return rows, nil
}

// ParseSchedule extracts raw rows from the schedule view
func (p *Parser) ParseSchedule(data []byte) ([]ScheduleRow, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedule page: %w", err)
	}

	var rows []ScheduleRow
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cols := tr.Find("td")
		if cols.Length() < 5 {
			return
		}
		rows = append(rows, ScheduleRow{
			Date:         cellText(cols, 0),
			HomeTeam:     cellText(cols, 1),
			AwayTeam:     cellText(cols, 3),
			Kickoff:      cellText(cols, 4),
			Championship: cellText(cols, 5),
		})
	})

	return rows, nil
}

func cellText(cols *goquery.Selection, i int) string {
	if i >= cols.Length() {
		return ""
	}
	return strings.TrimSpace(cols.Eq(i).Text())
}
