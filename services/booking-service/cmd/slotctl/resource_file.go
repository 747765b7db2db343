package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/model"
	"github.com/shopspring/decimal"
)

type resourceFile struct {
	ID                     string            `json:"id"`
	Name                   string            `json:"name"`
	Timezone               string            `json:"timezone"`
	OpenHours              []openHoursFile   `json:"open_hours"`
	ConsultingMinutes      int               `json:"consulting_minutes"`
	MaxBookableDays        int               `json:"max_bookable_days"`
	ReservationNoticeHours int               `json:"reservation_notice_hours"`
	ClosedOnHolidays       bool              `json:"closed_on_holidays"`
	UnavailablePeriods     []periodFile      `json:"unavailable_periods"`
	ClosureDays            []closureDayFile  `json:"closure_days"`
	Services               map[string]string `json:"services"`
	Rates                  map[string]string `json:"rates"`
	Currency               string            `json:"currency"`
}

type openHoursFile struct {
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type periodFile struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Reason string    `json:"reason"`
}

type closureDayFile struct {
	Month int `json:"month"`
	Day   int `json:"day"`
}

type bookingFile struct {
	ID    string    `json:"id"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func loadResource(path string) (model.Resource, error) {
	var f resourceFile
	if err := readJSON(path, &f); err != nil {
		return model.Resource{}, err
	}
	r := model.Resource{
		ID:                     f.ID,
		Name:                   f.Name,
		Timezone:               f.Timezone,
		ConsultingMinutes:      f.ConsultingMinutes,
		MaxBookableDays:        f.MaxBookableDays,
		ReservationNoticeHours: f.ReservationNoticeHours,
		ClosedOnHolidays:       f.ClosedOnHolidays,
		Currency:               f.Currency,
		Rates:                  map[model.ConsultingType]decimal.Decimal{},
	}
	if r.ID == "" {
		r.ID = strings.TrimSuffix(path, ".json")
	}
	for _, oh := range f.OpenHours {
		start, err := clockMinute(oh.Start)
		if err != nil {
			return model.Resource{}, err
		}
		end, err := clockMinute(oh.End)
		if err != nil {
			return model.Resource{}, err
		}
		r.OpenHours = append(r.OpenHours, model.OpenHours{Weekday: oh.Weekday, StartMinute: start, EndMinute: end})
	}
	for i, p := range f.UnavailablePeriods {
		r.UnavailablePeriods = append(r.UnavailablePeriods, model.UnavailablePeriod{
			ID:     fmt.Sprintf("period-%d", i+1),
			Start:  p.Start,
			End:    p.End,
			Reason: p.Reason,
		})
	}
	for _, c := range f.ClosureDays {
		r.ClosureDays = append(r.ClosureDays, model.ClosureDay{Month: time.Month(c.Month), Day: c.Day})
	}
	for name, pct := range f.Services {
		d, err := decimal.NewFromString(pct)
		if err != nil {
			return model.Resource{}, fmt.Errorf("service %q: invalid percentage %q", name, pct)
		}
		r.Services = append(r.Services, model.AddOnService{Name: name, Percentage: d})
	}
	for t, amount := range f.Rates {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return model.Resource{}, fmt.Errorf("rate %q: invalid amount %q", t, amount)
		}
		r.Rates[model.ConsultingType(t)] = d
	}
	return r, nil
}

// clockMinute parses "HH:MM" into minutes after midnight; "24:00" is end of day.
func clockMinute(s string) (int, error) {
	if s == "24:00" {
		return 24 * 60, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// fileBookings serves confirmed bookings loaded from a file.
type fileBookings []model.Booking

func loadBookings(path, resourceID string) (fileBookings, error) {
	if path == "" {
		return nil, nil
	}
	var raw []bookingFile
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	out := make(fileBookings, 0, len(raw))
	for _, b := range raw {
		out = append(out, model.Booking{
			ID:         b.ID,
			ResourceID: resourceID,
			Start:      b.Start,
			End:        b.End,
			State:      model.StateConfirmed,
		})
	}
	return out, nil
}

func (f fileBookings) ListConfirmedBookings(_ context.Context, resourceID string, from, to time.Time) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range f {
		if b.ResourceID == resourceID && b.Start.Before(to) && b.End.After(from) {
			out = append(out, b)
		}
	}
	return out, nil
}
