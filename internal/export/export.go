// Package export renders timelines and planner collections to CSV, iCalendar
// and JSON, and writes the result to disk atomically.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/natefinch/atomic"

	"github.com/sandeepkv93/wedplan/internal/model"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatICal Format = "ical"
	FormatJSON Format = "json"
)

// ParseFormat maps a user string to a Format. Anything unrecognised is JSON.
func ParseFormat(raw string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatCSV:
		return FormatCSV
	case FormatICal, "ics":
		return FormatICal
	default:
		return FormatJSON
	}
}

func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatICal:
		return "ics"
	default:
		return "json"
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv;charset=utf-8"
	case FormatICal:
		return "text/calendar;charset=utf-8"
	default:
		return "application/json"
	}
}

const (
	csvHeader  = "Milestone/Title,Due Date,Task,Status"
	icalLayout = "20060102T150405Z"
)

// Timeline renders list in the requested format. Unsupported formats fall
// back to JSON.
func Timeline(list []model.Entry, format string) (string, error) {
	switch ParseFormat(format) {
	case FormatCSV:
		return CSV(list), nil
	case FormatICal:
		return ICal(list, time.Now()), nil
	default:
		return JSON(list)
	}
}

// CSV writes one row per checklist task, or one row for a milestone without
// tasks. Fields are joined verbatim: embedded commas are not quoted.
func CSV(list []model.Entry) string {
	rows := []string{csvHeader}
	for _, e := range list {
		date := model.FormatDay(e.Date)
		if len(e.Tasks) == 0 {
			rows = append(rows, joinRow(e.Title, date, "", e.Status()))
			continue
		}
		for _, t := range e.Tasks {
			rows = append(rows, joinRow(e.Title, date, t.Name, t.Status()))
		}
	}
	return strings.Join(rows, "\n")
}

func joinRow(fields ...string) string {
	return strings.Join(fields, ",")
}

// ICal renders a VCALENDAR with one all-day VEVENT per entry.
func ICal(list []model.Entry, stamp time.Time) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		b.WriteString(foldLine(fmt.Sprintf(format, args...)))
		b.WriteString("\r\n")
	}
	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:-//wedplan//wedding timeline//EN")
	line("CALSCALE:GREGORIAN")
	for _, e := range list {
		status := "NEEDS-ACTION"
		if e.IsCompleted {
			status = "COMPLETED"
		}
		start := model.Day(e.Date)
		line("BEGIN:VEVENT")
		line("UID:%s@wedplan", e.ID)
		line("DTSTAMP:%s", stamp.UTC().Format(icalLayout))
		line("DTSTART:%s", start.Format(icalLayout))
		line("DTEND:%s", start.Add(24*time.Hour).Format(icalLayout))
		line("SUMMARY:%s", escapeText(e.Title))
		if e.Description != "" {
			line("DESCRIPTION:%s", escapeText(e.Description))
		}
		if e.CategoryID != "" {
			line("CATEGORIES:%s", escapeText(e.CategoryID))
		}
		line("STATUS:%s", status)
		line("END:VEVENT")
	}
	line("END:VCALENDAR")
	return b.String()
}

var icalEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", `\n`,
)

// escapeText encodes an iCalendar TEXT value.
func escapeText(s string) string {
	return icalEscaper.Replace(s)
}

const icalLineOctets = 75

// foldLine splits a content line into 75-octet chunks joined by CRLF and a
// leading space, never inside a UTF-8 sequence.
func foldLine(s string) string {
	if len(s) <= icalLineOctets {
		return s
	}
	var b strings.Builder
	limit := icalLineOctets
	for len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		b.WriteString(s[:cut])
		b.WriteString("\r\n ")
		s = s[cut:]
		limit = icalLineOctets - 1
	}
	b.WriteString(s)
	return b.String()
}

func JSON(list []model.Entry) (string, error) {
	if list == nil {
		list = []model.Entry{}
	}
	out, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export json: %w", err)
	}
	return string(out), nil
}

// Filename is wedding_timeline_<yyyy-mm-dd>.<ext> for the day of now.
func Filename(format Format, now time.Time) string {
	return fmt.Sprintf("wedding_timeline_%s.%s", now.Format("2006-01-02"), format.Extension())
}

// WriteFile renders list and stores it under dir, replacing any previous
// export of the same day. It returns the written path.
func WriteFile(dir string, list []model.Entry, format string, now time.Time) (string, error) {
	f := ParseFormat(format)
	var body string
	var err error
	switch f {
	case FormatCSV:
		body = CSV(list)
	case FormatICal:
		body = ICal(list, now)
	default:
		body, err = JSON(list)
	}
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, Filename(f, now))
	if err := atomic.WriteFile(path, bytes.NewReader([]byte(body))); err != nil {
		return "", fmt.Errorf("write export %s: %w", path, err)
	}
	return path, nil
}
