// Package holidays computes the Italian public holiday calendar, including the
// Easter-based moving feasts.
package holidays

import (
	"fmt"
	"slices"
	"time"

	"github.com/golang-sql/civil"
)

type Holiday struct {
	Date civil.Date
	Name string
}

var fixed = []struct {
	month time.Month
	day   int
	name  string
}{
	{time.January, 1, "New Year's Day"},
	{time.January, 6, "Epiphany"},
	{time.April, 25, "Liberation Day"},
	{time.May, 1, "Labour Day"},
	{time.June, 2, "Republic Day"},
	{time.August, 15, "Assumption Day"},
	{time.November, 1, "All Saints' Day"},
	{time.December, 8, "Immaculate Conception"},
	{time.December, 25, "Christmas Day"},
	{time.December, 26, "St. Stephen's Day"},
}

// Easter returns Easter Sunday of the Gregorian calendar using the anonymous
// Gregorian (Meeus/Jones/Butcher) algorithm.
func Easter(year int) (civil.Date, error) {
	if year <= 0 {
		return civil.Date{}, fmt.Errorf("year must be positive, got %d", year)
	}
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	n := h + l - 7*m + 114
	return civil.Date{Year: year, Month: time.Month(n / 31), Day: n%31 + 1}, nil
}

// ForYear lists the holidays of one year in calendar order.
func ForYear(year int) ([]Holiday, error) {
	easter, err := Easter(year)
	if err != nil {
		return nil, err
	}
	out := make([]Holiday, 0, len(fixed)+2)
	for _, f := range fixed {
		out = append(out, Holiday{Date: civil.Date{Year: year, Month: f.month, Day: f.day}, Name: f.name})
	}
	out = append(out,
		Holiday{Date: easter, Name: "Easter Sunday"},
		Holiday{Date: easter.AddDays(1), Name: "Easter Monday"},
	)
	slices.SortFunc(out, func(a, b Holiday) int { return Compare(a.Date, b.Date) })
	return out, nil
}

// ForYears lists the holidays for every year in [from, to].
func ForYears(from, to int) ([]Holiday, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("years must be positive, got %d..%d", from, to)
	}
	if to < from {
		return nil, fmt.Errorf("invalid year range %d..%d", from, to)
	}
	var out []Holiday
	for y := from; y <= to; y++ {
		hs, err := ForYear(y)
		if err != nil {
			return nil, err
		}
		out = append(out, hs...)
	}
	return out, nil
}

// Dates is ForYears without the names.
func Dates(from, to int) ([]civil.Date, error) {
	hs, err := ForYears(from, to)
	if err != nil {
		return nil, err
	}
	out := make([]civil.Date, len(hs))
	for i, h := range hs {
		out[i] = h.Date
	}
	return out, nil
}

// Compare orders civil dates.
func Compare(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}
