// Package exclusions derives the calendar dates and weekdays a resource never offers.
package exclusions

import (
	"fmt"
	"slices"
	"time"

	"github.com/golang-sql/civil"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/holidays"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/model"
)

// YearsAhead is how many years past the current one are covered.
const YearsAhead = 2

// fullDay is the threshold above which an unavailable period blocks whole dates.
const fullDay = 24 * time.Hour

// Set is an immutable, sorted exclusion set.
type Set struct {
	ExcludedDates    []civil.Date
	DisabledWeekdays []int

	excluded map[civil.Date]struct{}
	disabled [8]bool
}

func (s Set) IsExcluded(d civil.Date) bool {
	_, ok := s.excluded[d]
	return ok
}

func (s Set) IsDisabled(weekday int) bool {
	return weekday >= 1 && weekday <= 7 && s.disabled[weekday]
}

// Blocks reports whether nothing can be offered on d.
func (s Set) Blocks(d civil.Date) bool {
	return s.IsDisabled(model.DateWeekday(d)) || s.IsExcluded(d)
}

// Years returns the default range: the year of today through YearsAhead later.
func Years(today civil.Date) (int, int) {
	return today.Year, today.Year + YearsAhead
}

// Build combines holidays, recurring closure days, long unavailable periods and
// closed weekdays. Unavailable periods of 24 hours or less are left to the
// availability check.
func Build(r model.Resource, fromYear, toYear int) (Set, error) {
	schedule, _, err := model.NewWeeklySchedule(r.OpenHours)
	if err != nil {
		return Set{}, err
	}
	if fromYear <= 0 || toYear < fromYear {
		return Set{}, fmt.Errorf("invalid year range %d..%d", fromYear, toYear)
	}

	excluded := map[civil.Date]struct{}{}

	if r.ClosedOnHolidays {
		dates, err := holidays.Dates(fromYear, toYear)
		if err != nil {
			return Set{}, err
		}
		for _, d := range dates {
			excluded[d] = struct{}{}
		}
	}

	for y := fromYear; y <= toYear; y++ {
		for _, cd := range r.ClosureDays {
			d := civil.Date{Year: y, Month: cd.Month, Day: cd.Day}
			if d.IsValid() {
				excluded[d] = struct{}{}
			}
		}
	}

	for _, p := range r.UnavailablePeriods {
		if p.Duration() <= fullDay {
			continue
		}
		last := civil.DateOf(p.End.UTC())
		for d := civil.DateOf(p.Start.UTC()); !d.After(last); d = d.AddDays(1) {
			excluded[d] = struct{}{}
		}
	}

	s := Set{
		ExcludedDates:    make([]civil.Date, 0, len(excluded)),
		DisabledWeekdays: schedule.ClosedWeekdays(),
		excluded:         excluded,
	}
	for d := range excluded {
		s.ExcludedDates = append(s.ExcludedDates, d)
	}
	slices.SortFunc(s.ExcludedDates, holidays.Compare)
	for _, wd := range s.DisabledWeekdays {
		s.disabled[wd] = true
	}
	return s, nil
}
