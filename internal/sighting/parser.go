// Package sighting turns the Spot the Station RSS feed into ordered Sighting records.
package sighting

import (
	"bytes"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	// DefaultMarker identifies visibility entries by their title.
	DefaultMarker = "ISS Sighting"

	timestampLayout = "Monday Jan 2, 2006 3:04 PM"
)

// Description keys.
const (
	keyDate         = "Date"
	keyTime         = "Time"
	keyApproach     = "Approach"
	keyDeparture    = "Departure"
	keyDuration     = "Duration"
	keyMaxElevation = "Maximum Elevation"
)

var (
	skyLocationPattern = regexp.MustCompile(`(-?[0-9]+)° above ([A-Za-z]+)`)
	durationPattern    = regexp.MustCompile(`([0-9]+) minute`)
	elevationPattern   = regexp.MustCompile(`^(-?[0-9]+)°$`)
)

// Parser decodes feed documents. It performs no I/O.
type Parser struct {
	// Marker is the substring an item title must contain to be considered.
	Marker   string
	location *time.Location
}

// NewParser creates a parser that interprets feed timestamps in loc.
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}
	return &Parser{
		Marker:   DefaultMarker,
		location: loc,
	}
}

// Location returns the zone feed timestamps are interpreted in.
func (p *Parser) Location() *time.Location {
	return p.location
}

// Parse decodes raw feed bytes into sightings sorted by time. Entries with
// identical timestamps keep their feed order.
func (p *Parser) Parse(raw []byte) ([]Sighting, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, newParseError(BadFeed, "", "", err)
	}

	sightings := make([]Sighting, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || !strings.Contains(item.Title, p.Marker) {
			continue
		}
		s, err := p.ParseDescription(item.Description)
		if err != nil {
			return nil, err
		}
		sightings = append(sightings, s)
	}

	slices.SortStableFunc(sightings, func(a, b Sighting) int {
		return a.When.Compare(b.When)
	})
	return sightings, nil
}

// ParseDescription converts one item description into a Sighting.
func (p *Parser) ParseDescription(desc string) (Sighting, error) {
	fields := descriptionFields(desc)

	for _, key := range []string{keyDate, keyTime, keyApproach, keyDeparture, keyDuration, keyMaxElevation} {
		if _, ok := fields[key]; !ok {
			return Sighting{}, newParseError(MissingField, key, "", nil)
		}
	}

	when, err := p.parseTimestamp(fields[keyDate], fields[keyTime])
	if err != nil {
		return Sighting{}, err
	}
	approach, err := parseSkyLocation(keyApproach, fields[keyApproach])
	if err != nil {
		return Sighting{}, err
	}
	departure, err := parseSkyLocation(keyDeparture, fields[keyDeparture])
	if err != nil {
		return Sighting{}, err
	}
	duration, err := parseDuration(fields[keyDuration])
	if err != nil {
		return Sighting{}, err
	}
	maxElevation, err := parseElevation(fields[keyMaxElevation])
	if err != nil {
		return Sighting{}, err
	}

	return Sighting{
		When:            when,
		Approach:        approach,
		Departure:       departure,
		DurationMinutes: duration,
		MaxElevation:    maxElevation,
	}, nil
}

// descriptionFields splits the tab-indented "Key: value <br/>" lines of a
// description into a map.
func descriptionFields(desc string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(desc, "\n") {
		line = strings.TrimLeft(line, "\t")
		line = strings.TrimRight(line, " \r")
		line = strings.TrimSuffix(line, "<br/>")
		line = strings.TrimSuffix(line, " ")

		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return fields
}

func (p *Parser) parseTimestamp(date, clock string) (time.Time, error) {
	value := strings.Join(strings.Fields(date+" "+clock), " ")
	t, err := time.ParseInLocation(timestampLayout, value, p.location)
	if err != nil {
		return time.Time{}, newParseError(BadTimestamp, keyDate+" "+keyTime, value, err)
	}
	return t, nil
}

func parseSkyLocation(field, value string) (SkyLocation, error) {
	m := skyLocationPattern.FindStringSubmatch(value)
	if m == nil {
		return SkyLocation{}, newParseError(BadSkyLocation, field, value, nil)
	}
	elevation, err := strconv.Atoi(m[1])
	if err != nil {
		return SkyLocation{}, newParseError(BadSkyLocation, field, value, err)
	}
	if !validElevation(elevation) || !IsCompassPoint(m[2]) {
		return SkyLocation{}, newParseError(BadSkyLocation, field, value, nil)
	}
	return SkyLocation{Direction: m[2], Elevation: elevation}, nil
}

func parseDuration(value string) (int, error) {
	m := durationPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, newParseError(BadDuration, keyDuration, value, nil)
	}
	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, newParseError(BadDuration, keyDuration, value, err)
	}
	return minutes, nil
}

func parseElevation(value string) (int, error) {
	m := elevationPattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return 0, newParseError(BadElevation, keyMaxElevation, value, nil)
	}
	elevation, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, newParseError(BadElevation, keyMaxElevation, value, err)
	}
	if !validElevation(elevation) {
		return 0, newParseError(BadElevation, keyMaxElevation, value, nil)
	}
	return elevation, nil
}

func validElevation(deg int) bool {
	return deg >= 0 && deg <= 90
}
