package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/wedplan/internal/model"
)

var fixed = time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)

func sample() []model.Entry {
	return []model.Entry{
		{
			ID:          "e1",
			Title:       "Venue, Deposit",
			Date:        time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			CategoryID:  "venue",
			IsCompleted: true,
		},
		{
			ID:    "e2",
			Title: "Send invitations",
			Date:  time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC),
			Tasks: []model.Task{
				{ID: "t1", Name: "Print", Completed: true},
				{ID: "t2", Name: "RSVP page", Skipped: true},
				{ID: "t3", Name: "Post"},
			},
		},
	}
}

func TestCSVKeepsEmbeddedCommasUnquoted(t *testing.T) {
	out := CSV(sample())
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Milestone/Title,Due Date,Task,Status", lines[0])
	assert.Equal(t, "Venue, Deposit,2024-06-15,,Completed", lines[1])
	assert.Equal(t, "Send invitations,2025-03-17,Print,Completed", lines[2])
	assert.Equal(t, "Send invitations,2025-03-17,RSVP page,Skipped", lines[3])
	assert.Equal(t, "Send invitations,2025-03-17,Post,Pending", lines[4])
}

func TestICalStructure(t *testing.T) {
	out := ICal(sample(), fixed)
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "UID:e1@wedplan\r\n")
	assert.Contains(t, out, "DTSTART:20240615T000000Z\r\n")
	assert.Contains(t, out, "DTEND:20240616T000000Z\r\n")
	assert.Contains(t, out, "DTSTAMP:20250110T093000Z\r\n")
	assert.Contains(t, out, "STATUS:COMPLETED\r\n")
	assert.Contains(t, out, "STATUS:NEEDS-ACTION\r\n")
	assert.Contains(t, out, "CATEGORIES:venue\r\n")
}

func TestICalEscapesAndFoldsText(t *testing.T) {
	long := strings.Repeat("Überraschung ", 12)
	out := ICal([]model.Entry{{
		ID:          "e1",
		Title:       "Venue, Deposit; pay",
		Description: "line one\nline two\\done",
		CategoryID:  long,
		Date:        time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}}, fixed)

	assert.Contains(t, out, "SUMMARY:Venue\\, Deposit\\; pay\r\n")
	assert.Contains(t, out, `DESCRIPTION:line one\nline two\\done`+"\r\n")
	assert.NotContains(t, strings.ReplaceAll(out, "\r\n", ""), "\n", "bare line feeds must not survive")

	for _, l := range strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n") {
		assert.LessOrEqual(t, len(l), 75, "line %q exceeds 75 octets", l)
		assert.True(t, utf8.ValidString(l), "fold split a UTF-8 sequence in %q", l)
	}
	unfolded := strings.ReplaceAll(out, "\r\n ", "")
	assert.Contains(t, unfolded, "CATEGORIES:"+long+"\r\n")
}

func TestUnsupportedFormatFallsBackToJSON(t *testing.T) {
	out, err := Timeline(sample(), "xlsx")
	require.NoError(t, err)
	var decoded []model.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Venue, Deposit", decoded[0].Title)
	assert.Len(t, decoded[1].Tasks, 3)
}

func TestJSONEmptyListIsArray(t *testing.T) {
	out, err := JSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, ParseFormat(" CSV "))
	assert.Equal(t, FormatICal, ParseFormat("ics"))
	assert.Equal(t, FormatICal, ParseFormat("ical"))
	assert.Equal(t, FormatJSON, ParseFormat("pdf"))
	assert.Equal(t, "text/csv;charset=utf-8", FormatCSV.ContentType())
}

func TestWriteFileUsesDatedName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	path, err := WriteFile(dir, sample(), "csv", fixed)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "wedding_timeline_2025-01-10.csv"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, CSV(sample()), string(raw))
}

func TestRecordsGuests(t *testing.T) {
	out := Records([]model.Guest{
		{Name: "Anna", RSVP: model.RSVPAccepted, PlusOnes: 1},
		{Name: "Ben", RSVP: model.RSVPPending, Table: "3"},
	})
	assert.Equal(t, strings.Join([]string{
		"Name,Email,Phone,Side,Plus Ones,RSVP,Table",
		"Anna,,,,1,accepted,",
		"Ben,,,,0,pending,3",
	}, "\n"), out)
}
