// Package slots expands a resource's weekly open hours into bookable candidate slots.
package slots

import (
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/golang-sql/civil"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/exclusions"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/tzconv"
)

// Slot is a candidate window. StartUTC/EndUTC are canonical; StartLocal/EndLocal are
// the same instants in the visitor's zone.
type Slot struct {
	StartUTC   time.Time
	EndUTC     time.Time
	StartLocal time.Time
	EndLocal   time.Time
}

// Bounds is the inclusive range of calendar dates (resource zone) open for booking.
type Bounds struct {
	Min civil.Date
	Max civil.Date
}

func (b Bounds) Contains(d civil.Date) bool {
	return !d.Before(b.Min) && !d.After(b.Max)
}

// DateBounds evaluates now+notice and now+look-ahead as dates in the resource's zone.
func DateBounds(r model.Resource, now time.Time) (Bounds, error) {
	loc, err := tzconv.LoadZone(r.Timezone)
	if err != nil {
		return Bounds{}, err
	}
	return Bounds{
		Min: civil.DateOf(now.Add(r.EffectiveNotice()).In(loc)),
		Max: civil.DateOf(now.Add(r.LookAhead()).In(loc)),
	}, nil
}

type Request struct {
	Resource    model.Resource
	Date        civil.Date
	Exclusions  exclusions.Set
	VisitorZone string
	Now         time.Time
	// Checker filters out taken slots. A nil checker keeps every window.
	Checker WindowChecker
}

// WindowChecker decides whether a window is free; *availability.Checker implements it.
type WindowChecker interface {
	Check(start, end time.Time) (availability.Result, error)
}

// Generate validates the request and returns the slot sequence for req.Date.
// Dates outside the bounds, excluded dates and closed weekdays give an empty sequence.
// The sequence can be ranged over any number of times with identical results.
func Generate(req Request) (iter.Seq[Slot], error) {
	loc, err := tzconv.LoadZone(req.Resource.Timezone)
	if err != nil {
		return nil, err
	}
	visitor, err := tzconv.LoadZone(req.VisitorZone)
	if err != nil {
		return nil, err
	}
	schedule, _, err := model.NewWeeklySchedule(req.Resource.OpenHours)
	if err != nil {
		return nil, err
	}
	bounds, err := DateBounds(req.Resource, req.Now)
	if err != nil {
		return nil, err
	}

	entry, open := schedule.For(model.DateWeekday(req.Date))
	if !open || req.Exclusions.Blocks(req.Date) || !bounds.Contains(req.Date) {
		return func(func(Slot) bool) {}, nil
	}

	// Availability is settled here so a failing check is returned with the other
	// request errors; the sequence itself cannot fail.
	var free []window
	for _, w := range windows(req.Date, entry, req.Resource.ConsultingDuration(), loc) {
		if req.Checker != nil {
			res, err := req.Checker.Check(w.start, w.end)
			if err != nil {
				return nil, fmt.Errorf("check window %s: %w", w.start.UTC().Format(time.RFC3339), err)
			}
			if !res.Available {
				continue
			}
		}
		free = append(free, w)
	}

	return func(yield func(Slot) bool) {
		for _, w := range free {
			s := Slot{
				StartUTC:   w.start.UTC(),
				EndUTC:     w.end.UTC(),
				StartLocal: w.start.In(visitor),
				EndLocal:   w.end.In(visitor),
			}
			if !yield(s) {
				return
			}
		}
	}, nil
}

// Collect materializes a sequence.
func Collect(seq iter.Seq[Slot]) []Slot {
	return slices.Collect(seq)
}

type window struct {
	start time.Time
	end   time.Time
}

// windows partitions one open-hours entry into back-to-back windows that fit entirely
// inside it. Windows ending on another calendar date are dropped.
func windows(date civil.Date, entry model.OpenHours, duration time.Duration, loc *time.Location) []window {
	open := tzconv.At(tzconv.WallClock{Year: date.Year, Month: date.Month, Day: date.Day, Hour: entry.StartMinute / 60, Minute: entry.StartMinute % 60}, loc)
	closeAt := tzconv.At(tzconv.WallClock{Year: date.Year, Month: date.Month, Day: date.Day, Hour: entry.EndMinute / 60, Minute: entry.EndMinute % 60}, loc)

	var out []window
	for start := open; !start.Add(duration).After(closeAt); start = start.Add(duration) {
		end := start.Add(duration)
		if civil.DateOf(start.In(loc)) != date || civil.DateOf(end.In(loc)) != date {
			continue
		}
		out = append(out, window{start: start, end: end})
	}
	return out
}

// Contains reports whether start is the start of one of the slots in seq.
func Contains(seq iter.Seq[Slot], start time.Time) (Slot, bool) {
	for s := range seq {
		if s.StartUTC.Equal(start) {
			return s, true
		}
	}
	return Slot{}, false
}
