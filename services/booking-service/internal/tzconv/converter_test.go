package tzconv

import (
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadZoneRejectsUnknown(t *testing.T) {
	for _, name := range []string{"", "  ", "Local", "Mars/Olympus_Mons"} {
		_, err := LoadZone(name)
		var ze *apperr.InvalidZoneError
		assert.Truef(t, errors.As(err, &ze), "expected InvalidZoneError for %q", name)
	}
}

func TestToUTCFollowsDST(t *testing.T) {
	winter, err := ToUTC(WallClock{Year: 2026, Month: time.January, Day: 15, Hour: 10}, "Europe/Rome")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC).Unix(), winter)

	summer, err := ToUTC(WallClock{Year: 2026, Month: time.July, Day: 15, Hour: 10}, "Europe/Rome")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 15, 8, 0, 0, 0, time.UTC).Unix(), summer)
}

func TestToLocalRoundTrip(t *testing.T) {
	epoch := time.Date(2026, 10, 25, 0, 30, 0, 0, time.UTC).Unix()

	local, err := ToLocal(epoch, "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, WallClock{Year: 2026, Month: time.October, Day: 24, Hour: 20, Minute: 30}, WallClockOf(local))

	back, err := ToUTC(WallClockOf(local), "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, epoch, back)
}

func TestConvertKeepsInstant(t *testing.T) {
	in := time.Date(2026, 3, 29, 1, 30, 0, 0, time.UTC)
	out, err := Convert(in, "Asia/Tokyo")
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
	assert.Equal(t, 10, out.Hour())

	_, err = Convert(in, "Nope/Nope")
	assert.Error(t, err)
}
