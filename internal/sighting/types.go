package sighting

import (
	"fmt"
	"time"
)

// Compass points accepted in Approach/Departure fields.
var compassPoints = map[string]bool{
	"N": true, "NNE": true, "NE": true, "ENE": true,
	"E": true, "ESE": true, "SE": true, "SSE": true,
	"S": true, "SSW": true, "SW": true, "WSW": true,
	"W": true, "WNW": true, "NW": true, "NNW": true,
}

// SkyLocation is a position in the sky as seen from the observer.
type SkyLocation struct {
	Direction string // compass point, e.g. "NW"
	Elevation int    // degrees above the horizon, 0-90
}

func (l SkyLocation) String() string {
	return fmt.Sprintf("%d° above %s", l.Elevation, l.Direction)
}

// Sighting is one predicted visibility window.
type Sighting struct {
	When            time.Time
	Approach        SkyLocation
	Departure       SkyLocation
	DurationMinutes int
	MaxElevation    int
}

// Duration returns the visibility window length.
func (s Sighting) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// IsCompassPoint reports whether dir is one of the 16 compass abbreviations.
func IsCompassPoint(dir string) bool {
	return compassPoints[dir]
}
