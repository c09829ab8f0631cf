package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/iss-notify/internal/sighting"
	"github.com/smazurov/iss-notify/internal/version"
)

func TestRootCmdRegistersCommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"sightings", "test-pattern", "update", "version"})
	assert.NotNil(t, root.PersistentFlags().Lookup("feed-url"))
	assert.NotNil(t, root.PersistentFlags().Lookup("mqtt-client-id"))
}

func TestRenderSightings(t *testing.T) {
	now := time.Date(2025, 1, 3, 20, 0, 0, 0, time.UTC)
	list := []sighting.Sighting{
		{
			When:            now.Add(-time.Hour),
			DurationMinutes: 2,
			MaxElevation:    20,
			Approach:        sighting.SkyLocation{Direction: "W", Elevation: 10},
			Departure:       sighting.SkyLocation{Direction: "S", Elevation: 12},
		},
		{
			When:            now.Add(90 * time.Minute),
			DurationMinutes: 6,
			MaxElevation:    67,
			Approach:        sighting.SkyLocation{Direction: "NW", Elevation: 10},
			Departure:       sighting.SkyLocation{Direction: "SE", Elevation: 11},
		},
	}

	var buf bytes.Buffer
	renderSightings(&buf, list, now, false)
	out := buf.String()
	assert.Contains(t, out, "MAX ELEVATION")
	assert.Contains(t, out, "1h30m0s")
	assert.Contains(t, out, "67°")
	assert.Contains(t, out, "10° above NW")
	assert.NotContains(t, out, "passed")

	buf.Reset()
	renderSightings(&buf, list, now, true)
	assert.Contains(t, buf.String(), "passed")
	assert.Contains(t, buf.String(), "12° above S")
}

func TestRenderSightingsEmpty(t *testing.T) {
	var buf bytes.Buffer
	renderSightings(&buf, nil, time.Now(), false)
	assert.Equal(t, "No upcoming sightings\n", buf.String())
}

func TestVersionCmd(t *testing.T) {
	c := CreateVersionCmd()
	var buf bytes.Buffer
	c.SetOut(&buf)
	c.SetArgs([]string{"--json"})
	require.NoError(t, c.Execute())

	var info version.Info
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
	assert.Equal(t, version.Version, info.Version)

	buf.Reset()
	c.SetArgs([]string{"--json=false"})
	require.NoError(t, c.Execute())
	assert.True(t, strings.HasPrefix(buf.String(), version.Name+" "))
}
