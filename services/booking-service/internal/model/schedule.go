package model

import (
	"time"

	"github.com/golang-sql/civil"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/apperr"
)

const minutesPerDay = 24 * 60

// OpenHours is a recurring weekly window. Weekday follows ISO numbering (1 = Monday).
type OpenHours struct {
	Weekday     int
	StartMinute int
	EndMinute   int
}

// WeeklySchedule holds at most one validated OpenHours entry per weekday.
type WeeklySchedule struct {
	days [8]OpenHours
	open [8]bool
}

// NewWeeklySchedule validates entries and indexes them by weekday. A repeated weekday
// keeps the last entry; the repeated weekdays are returned so callers can report them.
func NewWeeklySchedule(entries []OpenHours) (WeeklySchedule, []int, error) {
	var (
		s          WeeklySchedule
		duplicates []int
	)
	for _, e := range entries {
		if e.Weekday < 1 || e.Weekday > 7 {
			return WeeklySchedule{}, nil, &apperr.InvalidScheduleError{Weekday: e.Weekday, Reason: "weekday must be between 1 and 7"}
		}
		if e.StartMinute < 0 || e.EndMinute > minutesPerDay {
			return WeeklySchedule{}, nil, &apperr.InvalidScheduleError{Weekday: e.Weekday, Reason: "minutes must be within the day"}
		}
		if e.StartMinute >= e.EndMinute {
			return WeeklySchedule{}, nil, &apperr.InvalidScheduleError{Weekday: e.Weekday, Reason: "start must be before end"}
		}
		if s.open[e.Weekday] {
			duplicates = append(duplicates, e.Weekday)
		}
		s.days[e.Weekday] = e
		s.open[e.Weekday] = true
	}
	return s, duplicates, nil
}

// For returns the entry for an ISO weekday.
func (s WeeklySchedule) For(weekday int) (OpenHours, bool) {
	if weekday < 1 || weekday > 7 || !s.open[weekday] {
		return OpenHours{}, false
	}
	return s.days[weekday], true
}

// Weekdays lists the open ISO weekdays in ascending order.
func (s WeeklySchedule) Weekdays() []int {
	var out []int
	for d := 1; d <= 7; d++ {
		if s.open[d] {
			out = append(out, d)
		}
	}
	return out
}

// ClosedWeekdays is the complement of Weekdays.
func (s WeeklySchedule) ClosedWeekdays() []int {
	var out []int
	for d := 1; d <= 7; d++ {
		if !s.open[d] {
			out = append(out, d)
		}
	}
	return out
}

func ISOWeekday(w time.Weekday) int {
	if w == time.Sunday {
		return 7
	}
	return int(w)
}

// DateWeekday is the ISO weekday of a calendar date.
func DateWeekday(d civil.Date) int {
	return ISOWeekday(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday())
}
