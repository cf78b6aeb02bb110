package calendar

import (
	"bytes"
)

const (
	icsTimestampLayout = "20060102T150405"
	icsUTCLayout       = "20060102T150405Z"
)

// Generator emits the ICS serialization of a canonical event set. The
// header, timezone block and footer are fixed boilerplate; one VEVENT is
// written per event in input order. The output doubles as the durable
// snapshot and the remote-store import payload.
type Generator struct {
	calendarName string
	timezone     string
}

// NewGenerator creates an ICS generator for the named calendar
func NewGenerator(calendarName, timezone string) *Generator {
	return &Generator{
		calendarName: calendarName,
		timezone:     timezone,
	}
}

// Run renders the full VCALENDAR document. It is a pure function of the
// event set: every timestamp written comes from the events themselves.
func (g *Generator) Run(events []Event) string {
	var buf bytes.Buffer

	g.writeLine(&buf, "BEGIN:VCALENDAR")
	g.writeLine(&buf, "VERSION:2.0")
	g.writeLine(&buf, "PRODID:-//Mirassol FC Games//PT")
	g.writeLine(&buf, "CALSCALE:GREGORIAN")
	g.writeLine(&buf, "METHOD:PUBLISH")
	g.writeLine(&buf, "X-WR-CALNAME:"+g.calendarName)
	g.writeLine(&buf, "X-WR-TIMEZONE:"+g.timezone)
	g.writeTimezone(&buf)

	for _, event := range events {
		g.writeEvent(&buf, event)
	}

	g.writeLine(&buf, "END:VCALENDAR")

	return buf.String()
}

func (g *Generator) writeEvent(buf *bytes.Buffer, event Event) {
	g.writeLine(buf, "BEGIN:VEVENT")
	g.writeLine(buf, "UID:"+event.UID)
	g.writeLine(buf, "DTSTAMP:"+event.CreatedAt.UTC().Format(icsUTCLayout))
	g.writeLine(buf, "DTSTART;TZID="+g.timezone+":"+event.Start.Format(icsTimestampLayout))
	g.writeLine(buf, "DTEND;TZID="+g.timezone+":"+event.End.Format(icsTimestampLayout))
	g.writeLine(buf, "SUMMARY:"+event.Title)
	g.writeLine(buf, "DESCRIPTION:"+event.Description)
	g.writeLine(buf, "STATUS:CONFIRMED")
	g.writeLine(buf, "END:VEVENT")
}

// writeTimezone emits the fixed VTIMEZONE block with Brazil's historical
// daylight-saving transition rules.
func (g *Generator) writeTimezone(buf *bytes.Buffer) {
	g.writeLine(buf, "BEGIN:VTIMEZONE")
	g.writeLine(buf, "TZID:"+g.timezone)
	g.writeLine(buf, "BEGIN:DAYLIGHT")
	g.writeLine(buf, "TZOFFSETFROM:-0300")
	g.writeLine(buf, "TZOFFSETTO:-0200")
	g.writeLine(buf, "TZNAME:BRST")
	g.writeLine(buf, "DTSTART:20231015T000000")
	g.writeLine(buf, "RRULE:FREQ=YEARLY;BYMONTH=10;BYDAY=3SU")
	g.writeLine(buf, "END:DAYLIGHT")
	g.writeLine(buf, "BEGIN:STANDARD")
	g.writeLine(buf, "TZOFFSETFROM:-0200")
	g.writeLine(buf, "TZOFFSETTO:-0300")
	g.writeLine(buf, "TZNAME:BRT")
	g.writeLine(buf, "DTSTART:20240218T000000")
	g.writeLine(buf, "RRULE:FREQ=YEARLY;BYMONTH=2;BYDAY=3SU")
	g.writeLine(buf, "END:STANDARD")
	g.writeLine(buf, "END:VTIMEZONE")
}

func (g *Generator) writeLine(buf *bytes.Buffer, line string) {
	buf.WriteString(line)
	buf.WriteString("\n")
}
