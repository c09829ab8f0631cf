package sighting

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	title        string
	date         string
	clock        string
	approach     string
	departure    string
	duration     string
	maxElevation string
}

func validEntry(date, clock string) entry {
	return entry{
		title:        fmt.Sprintf("%s - ISS Sighting", date),
		date:         date,
		clock:        clock,
		approach:     "10° above NW",
		departure:    "45° above NE",
		duration:     "6 minutes",
		maxElevation: "52°",
	}
}

func (e entry) description() string {
	var lines []string
	add := func(key, value string) {
		if value != "" {
			lines = append(lines, fmt.Sprintf("\t%s: %s <br/>", key, value))
		}
	}
	add("Date", e.date)
	add("Time", e.clock)
	add("Duration", e.duration)
	add("Maximum Elevation", e.maxElevation)
	add("Approach", e.approach)
	add("Departure", e.departure)
	return strings.Join(lines, "\n")
}

func buildFeed(entries ...entry) []byte {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<rss version="2.0"><channel><title>Spot the Station</title><link>https://spotthestation.nasa.gov</link><description>sightings</description>` + "\n")
	for _, e := range entries {
		sb.WriteString("<item><title>")
		sb.WriteString(html.EscapeString(e.title))
		sb.WriteString("</title><description>")
		sb.WriteString(html.EscapeString(e.description()))
		sb.WriteString("</description></item>\n")
	}
	sb.WriteString("</channel></rss>\n")
	return []byte(sb.String())
}

func laParser(t *testing.T) *Parser {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	return NewParser(loc)
}

func TestParseRoundTrip(t *testing.T) {
	p := laParser(t)

	got, err := p.Parse(buildFeed(validEntry("Friday Jan 3, 2025", "9:45 PM")))
	require.NoError(t, err)
	require.Len(t, got, 1)

	want := time.Date(2025, time.January, 3, 21, 45, 0, 0, p.Location())
	s := got[0]
	assert.True(t, s.When.Equal(want), "When = %v, want %v", s.When, want)
	assert.Equal(t, SkyLocation{Direction: "NW", Elevation: 10}, s.Approach)
	assert.Equal(t, SkyLocation{Direction: "NE", Elevation: 45}, s.Departure)
	assert.Equal(t, 6, s.DurationMinutes)
	assert.Equal(t, 52, s.MaxElevation)
	assert.Equal(t, 6*time.Minute, s.Duration())
}

func TestParseTimestampVariants(t *testing.T) {
	p := laParser(t)

	tests := []struct {
		date  string
		clock string
		want  time.Time
	}{
		{"Friday Jan 03, 2025", "9:45 PM", time.Date(2025, 1, 3, 21, 45, 0, 0, p.Location())},
		{"Friday Jan 03, 2025", " 9:45 PM", time.Date(2025, 1, 3, 21, 45, 0, 0, p.Location())},
		{"Saturday Jul 12, 2025", "4:05 AM", time.Date(2025, 7, 12, 4, 5, 0, 0, p.Location())},
		{"Sunday Jul 13, 2025", "12:01 AM", time.Date(2025, 7, 13, 0, 1, 0, 0, p.Location())},
	}

	for _, tt := range tests {
		t.Run(tt.date+" "+tt.clock, func(t *testing.T) {
			got, err := p.Parse(buildFeed(validEntry(tt.date, tt.clock)))
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.True(t, got[0].When.Equal(tt.want), "When = %v, want %v", got[0].When, tt.want)
		})
	}
}

func TestParseSortsAscendingAndStable(t *testing.T) {
	p := laParser(t)

	late := validEntry("Sunday Jan 5, 2025", "6:10 PM")
	early := validEntry("Friday Jan 3, 2025", "9:45 PM")
	tieA := validEntry("Saturday Jan 4, 2025", "7:00 PM")
	tieA.approach = "12° above N"
	tieB := validEntry("Saturday Jan 4, 2025", "7:00 PM")
	tieB.approach = "20° above S"

	got, err := p.Parse(buildFeed(late, tieA, early, tieB))
	require.NoError(t, err)
	require.Len(t, got, 4)

	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].When.Before(got[i-1].When), "entry %d out of order", i)
	}
	assert.Equal(t, "N", got[1].Approach.Direction, "tie should keep feed order")
	assert.Equal(t, "S", got[2].Approach.Direction, "tie should keep feed order")
}

func TestParseFiltersUnrelatedEntries(t *testing.T) {
	p := laParser(t)

	other := entry{title: "Spot the Station update", date: "", clock: ""}
	got, err := p.Parse(buildFeed(other, validEntry("Friday Jan 3, 2025", "9:45 PM")))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestParseEmptyFeed(t *testing.T) {
	got, err := laParser(t).Parse(buildFeed())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseErrors(t *testing.T) {
	base := validEntry("Friday Jan 3, 2025", "9:45 PM")

	tests := []struct {
		name   string
		mutate func(e *entry)
		kind   Kind
		target error
	}{
		{"missing date", func(e *entry) { e.date = "" }, MissingField, ErrMissingField},
		{"missing departure", func(e *entry) { e.departure = "" }, MissingField, ErrMissingField},
		{"missing max elevation", func(e *entry) { e.maxElevation = "" }, MissingField, ErrMissingField},
		{"bad timestamp", func(e *entry) { e.clock = "quarter past nine" }, BadTimestamp, ErrBadTimestamp},
		{"bad approach text", func(e *entry) { e.approach = "somewhere up there" }, BadSkyLocation, ErrBadSkyLocation},
		{"approach above 90", func(e *entry) { e.approach = "95° above NW" }, BadSkyLocation, ErrBadSkyLocation},
		{"departure below horizon", func(e *entry) { e.departure = "-3° above NE" }, BadSkyLocation, ErrBadSkyLocation},
		{"unknown compass point", func(e *entry) { e.departure = "10° above NNNE" }, BadSkyLocation, ErrBadSkyLocation},
		{"bad duration", func(e *entry) { e.duration = "less than 1" }, BadDuration, ErrBadDuration},
		{"bad max elevation", func(e *entry) { e.maxElevation = "high" }, BadElevation, ErrBadElevation},
		{"max elevation above 90", func(e *entry) { e.maxElevation = "91°" }, BadElevation, ErrBadElevation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base
			tt.mutate(&e)

			_, err := laParser(t).Parse(buildFeed(e))
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "want *ParseError, got %T", err)
			assert.Equal(t, tt.kind, perr.Kind)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestParseMalformedFeed(t *testing.T) {
	_, err := laParser(t).Parse([]byte("this is not a feed"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadFeed)
}

func TestParseDeterministic(t *testing.T) {
	p := laParser(t)
	raw := buildFeed(
		validEntry("Sunday Jan 5, 2025", "6:10 PM"),
		validEntry("Friday Jan 3, 2025", "9:45 PM"),
	)

	first, err := p.Parse(raw)
	require.NoError(t, err)
	second, err := p.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDescriptionFields(t *testing.T) {
	desc := "Date: Friday Jan 3, 2025 <br/>\n\t\tTime: 9:45 PM <br/>\n\n\tno separator here\n\tMaximum Elevation: 52° <br/>"
	fields := descriptionFields(desc)

	assert.Equal(t, map[string]string{
		"Date":              "Friday Jan 3, 2025",
		"Time":              "9:45 PM",
		"Maximum Elevation": "52°",
	}, fields)
}

func TestIsCompassPoint(t *testing.T) {
	for _, dir := range []string{"N", "NNE", "WSW", "NNW"} {
		assert.True(t, IsCompassPoint(dir), dir)
	}
	for _, dir := range []string{"", "n", "NNNE", "X"} {
		assert.False(t, IsCompassPoint(dir), dir)
	}
}
