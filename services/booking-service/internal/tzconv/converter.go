// Package tzconv converts instants between named IANA zones.
//
// Instants cross package boundaries as UTC epoch seconds; wall clocks are
// always paired with the zone they were read in.
package tzconv

import (
	"strings"
	"time"

	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/apperr"
)

// WallClock is a civil date and time of day with no zone attached.
type WallClock struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

func WallClockOf(t time.Time) WallClock {
	return WallClock{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// LoadZone resolves an IANA name. Empty names and "Local" are rejected so results
// never depend on the host configuration.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return nil, &apperr.InvalidZoneError{Zone: name}
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &apperr.InvalidZoneError{Zone: name, Err: err}
	}
	return loc, nil
}

// ToLocal renders a UTC epoch as wall-clock time in zone.
func ToLocal(epoch int64, zone string) (time.Time, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(epoch, 0).In(loc), nil
}

// ToUTC resolves a wall clock read in zone to a UTC epoch. Wall clocks that fall in a
// DST gap or overlap resolve the way time.Date does.
func ToUTC(w WallClock, zone string) (int64, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return 0, err
	}
	return At(w, loc).Unix(), nil
}

// At builds the instant for w in an already loaded location.
func At(w WallClock, loc *time.Location) time.Time {
	return time.Date(w.Year, w.Month, w.Day, w.Hour, w.Minute, w.Second, 0, loc)
}

// Convert re-expresses t in zone.
func Convert(t time.Time, zone string) (time.Time, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}
