package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultConsultingMinutes      = 60
	DefaultMaxBookableDays        = 365
	DefaultReservationNoticeHours = 48
	// NoticeMarginHours is added on top of the configured notice so the earliest
	// offered day is always a full day past the notice.
	NoticeMarginHours = 24
)

type ConsultingType string

const (
	ConsultingOnline   ConsultingType = "online"
	ConsultingInPerson ConsultingType = "in_person"
)

func (t ConsultingType) Valid() bool {
	return t == ConsultingOnline || t == ConsultingInPerson
}

// UnavailablePeriod blocks the resource independently of its weekly schedule.
type UnavailablePeriod struct {
	ID     string
	Start  time.Time
	End    time.Time
	Reason string
}

func (p UnavailablePeriod) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// AddOnService is an optional extra priced as a percentage of the base rate.
type AddOnService struct {
	Name       string
	Percentage decimal.Decimal
}

// ClosureDay is a recurring yearly closure (day and month), e.g. a local patron saint day.
type ClosureDay struct {
	Month time.Month
	Day   int
}

// Resource is the bookable entity: a consultant, room or desk.
type Resource struct {
	ID                     string
	Name                   string
	Timezone               string
	OpenHours              []OpenHours
	ConsultingMinutes      int
	MaxBookableDays        int
	ReservationNoticeHours int
	ClosedOnHolidays       bool
	UnavailablePeriods     []UnavailablePeriod
	Services               []AddOnService
	ClosureDays            []ClosureDay
	Rates                  map[ConsultingType]decimal.Decimal
	Currency               string
}

func (r Resource) ConsultingDuration() time.Duration {
	mins := r.ConsultingMinutes
	if mins <= 0 {
		mins = DefaultConsultingMinutes
	}
	return time.Duration(mins) * time.Minute
}

// EffectiveNotice is the configured notice (default 48h) plus the 24h margin.
func (r Resource) EffectiveNotice() time.Duration {
	hours := r.ReservationNoticeHours
	if hours <= 0 {
		hours = DefaultReservationNoticeHours
	}
	return time.Duration(hours+NoticeMarginHours) * time.Hour
}

func (r Resource) LookAhead() time.Duration {
	days := r.MaxBookableDays
	if days <= 0 {
		days = DefaultMaxBookableDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// Service finds an add-on by name, case-insensitively.
func (r Resource) Service(name string) (AddOnService, bool) {
	name = strings.TrimSpace(name)
	for _, s := range r.Services {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return AddOnService{}, false
}

func (r Resource) Rate(t ConsultingType) (decimal.Decimal, bool) {
	rate, ok := r.Rates[t]
	return rate, ok
}
