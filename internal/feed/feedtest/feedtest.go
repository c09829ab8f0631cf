// Package feedtest provides canned sightings feeds for tests.
package feedtest

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"
)

// Static is a feed.Fetcher returning a fixed body or error.
type Static struct {
	mu    sync.Mutex
	body  []byte
	err   error
	calls int
}

// NewStatic returns a fetcher that always serves body.
func NewStatic(body []byte) *Static {
	return &Static{body: body}
}

// Fetch implements feed.Fetcher.
func (s *Static) Fetch(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.body, nil
}

// Set replaces the body and error served by later fetches.
func (s *Static) Set(body []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = body
	s.err = err
}

// Calls returns how many times Fetch ran.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Feed renders an RSS document with one ISS sighting per time. Times are
// formatted in their own location, to the minute.
func Feed(times ...time.Time) []byte {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<rss version="2.0"><channel><title>Spot the Station</title><link>https://spotthestation.nasa.gov</link><description>sightings</description>` + "\n")
	for _, t := range times {
		date := t.Format("Monday Jan 2, 2006")
		desc := strings.Join([]string{
			fmt.Sprintf("\tDate: %s <br/>", date),
			fmt.Sprintf("\tTime: %s <br/>", t.Format("3:04 PM")),
			"\tDuration: 4 minutes <br/>",
			"\tMaximum Elevation: 45° <br/>",
			"\tApproach: 10° above NW <br/>",
			"\tDeparture: 10° above SE <br/>",
		}, "\n")

		sb.WriteString("<item><title>")
		sb.WriteString(html.EscapeString(date + " - ISS Sighting"))
		sb.WriteString("</title><description>")
		sb.WriteString(html.EscapeString(desc))
		sb.WriteString("</description></item>\n")
	}
	sb.WriteString("</channel></rss>\n")
	return []byte(sb.String())
}
