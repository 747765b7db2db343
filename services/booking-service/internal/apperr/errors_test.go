package apperr

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsInvalidInput(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	assert.True(t, IsInvalidInput(fmt.Errorf("wrap: %w", &InvalidZoneError{Zone: "Mars/Base"})))
	assert.True(t, IsInvalidInput(&InvalidRangeError{Start: now, End: now}))
	assert.True(t, IsInvalidInput(&InvalidScheduleError{Weekday: 8, Reason: "weekday out of range"}))
	assert.True(t, IsInvalidInput(&InvalidRateError{Field: "base rate", Value: "-1"}))
	assert.True(t, IsInvalidInput(&InvalidDateError{Value: "2026-02-30"}))
	assert.True(t, IsInvalidInput(&InvalidArgumentError{Field: "consulting type", Value: "phone"}))
	assert.Equal(t, "customer name is required", (&InvalidArgumentError{Field: "customer name"}).Error())
	assert.False(t, IsInvalidInput(ErrSlotUnavailable))
	assert.False(t, IsInvalidInput(&ConfigurationMissingError{Key: "PLATFORM_FEE_PERCENT"}))
}

func TestMessages(t *testing.T) {
	assert.Equal(t, `invalid time zone "Mars/Base"`, (&InvalidZoneError{Zone: "Mars/Base"}).Error())
	assert.Equal(t, "invalid time zone: empty name", (&InvalidZoneError{}).Error())
	assert.Equal(t, "invalid open hours for weekday 3: start must be before end",
		(&InvalidScheduleError{Weekday: 3, Reason: "start must be before end"}).Error())
}
