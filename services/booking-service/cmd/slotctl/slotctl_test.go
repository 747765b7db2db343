package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const studio = `{
  "id": "studio",
  "timezone": "Europe/Rome",
  "open_hours": [
    {"weekday": 1, "start": "09:00", "end": "17:00"},
    {"weekday": 2, "start": "09:00", "end": "17:00"},
    {"weekday": 3, "start": "09:00", "end": "17:00"},
    {"weekday": 4, "start": "09:00", "end": "17:00"},
    {"weekday": 5, "start": "09:00", "end": "13:00"}
  ],
  "consulting_minutes": 60,
  "closed_on_holidays": true,
  "rates": {"online": "100"},
  "currency": "EUR"
}`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestHolidaysCommand(t *testing.T) {
	out, err := execute(t, "holidays", "--from", "2026")
	require.NoError(t, err)
	assert.Contains(t, out, "2026-04-06")
	assert.Contains(t, out, "Easter Monday")
	assert.Equal(t, 12, strings.Count(out, "\n"))
}

func TestPriceCommand(t *testing.T) {
	out, err := execute(t, "price", "--rate", "100", "--fee", "10", "--discount", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "total:      88\n")

	out, err = execute(t, "price", "--rate", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "total:      100\n")

	_, err = execute(t, "price", "--rate", "abc")
	require.Error(t, err)
}

func TestSlotsCommand(t *testing.T) {
	resource := writeFile(t, "studio.json", studio)
	taken := writeFile(t, "taken.json",
		`[{"id": "b1", "start": "2026-10-28T09:00:00Z", "end": "2026-10-28T10:00:00Z"}]`)

	out, err := execute(t, "slots",
		"--resource", resource,
		"--date", "2026-10-28",
		"--now", "2026-10-20T08:00:00Z",
		"--bookings", taken,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "studio on 2026-10-28")
	assert.Contains(t, out, "2026-10-28 08:00 - 09:00")
	assert.NotContains(t, out, "2026-10-28 09:00 - 10:00")
	assert.Equal(t, 8, strings.Count(out, "\n"), out)
}

func TestSlotsCommandVisitorZone(t *testing.T) {
	resource := writeFile(t, "studio.json", studio)

	out, err := execute(t, "slots",
		"--resource", resource,
		"--date", "2026-10-28",
		"--now", "2026-10-20T08:00:00Z",
		"--tz", "America/New_York",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "2026-10-28 04:00 - 05:00  (08:00 UTC)")
}

func TestSlotsCommandClosedDays(t *testing.T) {
	resource := writeFile(t, "studio.json", studio)

	// Sunday.
	out, err := execute(t, "slots", "--resource", resource, "--date", "2026-11-01", "--now", "2026-10-20T08:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "no slots")

	// Immaculate Conception, a Tuesday.
	out, err = execute(t, "slots", "--resource", resource, "--date", "2026-12-08", "--now", "2026-10-20T08:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "no slots")
}

func TestSlotsCommandRejectsBadInput(t *testing.T) {
	resource := writeFile(t, "studio.json", studio)

	_, err := execute(t, "slots", "--resource", resource, "--date", "2026-13-40")
	require.Error(t, err)

	_, err = execute(t, "slots", "--resource", resource, "--date", "2026-10-28", "--tz", "Mars/Base")
	require.Error(t, err)

	_, err = execute(t, "slots", "--resource", filepath.Join(t.TempDir(), "missing.json"), "--date", "2026-10-28")
	require.Error(t, err)
}
