// Package apperr holds the error types shared by the booking core and its adapters.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrSlotUnavailable = errors.New("slot not available")
	ErrNotCancellable  = errors.New("booking is not confirmed")
	ErrLocked          = errors.New("resource is busy, retry shortly")
)

// InvalidZoneError reports an unrecognized IANA zone name.
type InvalidZoneError struct {
	Zone string
	Err  error
}

func (e *InvalidZoneError) Error() string {
	if e.Zone == "" {
		return "invalid time zone: empty name"
	}
	return fmt.Sprintf("invalid time zone %q", e.Zone)
}

func (e *InvalidZoneError) Unwrap() error { return e.Err }

// InvalidScheduleError reports a malformed open-hours entry.
type InvalidScheduleError struct {
	Weekday int
	Reason  string
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid open hours for weekday %d: %s", e.Weekday, e.Reason)
}

// InvalidRangeError reports a query interval whose end is not after its start.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: end %s is not after start %s",
		e.End.UTC().Format(time.RFC3339), e.Start.UTC().Format(time.RFC3339))
}

// InvalidDateError reports a calendar date that does not exist or cannot be parsed.
type InvalidDateError struct {
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q", e.Value)
}

// ConfigurationMissingError marks an absent setting. Callers treat the feature as disabled.
type ConfigurationMissingError struct {
	Key string
}

func (e *ConfigurationMissingError) Error() string {
	return fmt.Sprintf("configuration %s is not set", e.Key)
}

// InvalidRateError rejects amounts and percentages the price formula cannot use.
type InvalidRateError struct {
	Field string
	Value string
}

func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Value)
}

// InvalidArgumentError rejects an enumerated or required request field.
type InvalidArgumentError struct {
	Field string
	Value string
}

func (e *InvalidArgumentError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// IsInvalidInput reports whether err stems from structurally invalid caller input.
func IsInvalidInput(err error) bool {
	var (
		zone     *InvalidZoneError
		schedule *InvalidScheduleError
		rng      *InvalidRangeError
		rate     *InvalidRateError
		date     *InvalidDateError
		arg      *InvalidArgumentError
	)
	return errors.As(err, &zone) || errors.As(err, &schedule) || errors.As(err, &rng) ||
		errors.As(err, &rate) || errors.As(err, &date) || errors.As(err, &arg)
}
