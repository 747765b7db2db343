// Package scheduling answers the read-side booking questions for a resource: which
// slots are offered on a date, whether an interval is free, what a consultation
// costs and which dates are closed.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-sql/civil"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/exclusions"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/pricing"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/settings"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/slots"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/tzconv"
)

// ResourceStore loads a resource with its schedule, periods, services and rates.
// Implementations return an error wrapping apperr.ErrNotFound for unknown ids.
type ResourceStore interface {
	GetResource(ctx context.Context, id string) (model.Resource, error)
}

type Service struct {
	resources   ResourceStore
	bookings    availability.BookingQuery
	platform    settings.Platform
	calculator  pricing.Calculator
	defaultZone string
	now         func() time.Time
	logger      *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCalculator(c pricing.Calculator) Option {
	return func(s *Service) { s.calculator = c }
}

// WithDefaultZone sets the visitor zone used when a request names none.
func WithDefaultZone(zone string) Option {
	return func(s *Service) { s.defaultZone = zone }
}

func NewService(logger *slog.Logger, resources ResourceStore, bookings availability.BookingQuery, platform settings.Platform, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		resources:   resources,
		bookings:    bookings,
		platform:    platform,
		calculator:  pricing.DefaultCalculator{},
		defaultZone: "UTC",
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now is the clock the service evaluates bounds against.
func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) Resource(ctx context.Context, id string) (model.Resource, error) {
	r, err := s.resources.GetResource(ctx, id)
	if err != nil {
		return model.Resource{}, err
	}
	if _, dups, err := model.NewWeeklySchedule(r.OpenHours); err == nil && len(dups) > 0 {
		s.logger.Warn("duplicate open hours entries; last one wins", "resource_id", r.ID, "weekdays", dups)
	}
	return r, nil
}

// VisitorZone returns zone, or the configured default when zone is blank.
func (s *Service) VisitorZone(zone string) string {
	if zone == "" {
		return s.defaultZone
	}
	return zone
}

// SlotsRequest describes a GenerateSlots call. Ignore names a booking left out of the
// availability snapshot, used when moving that booking.
type SlotsRequest struct {
	ResourceID  string
	Date        civil.Date
	VisitorZone string
	Ignore      string
}

type DaySlots struct {
	ResourceID  string
	Date        civil.Date
	VisitorZone string
	Bounds      slots.Bounds
	Slots       []slots.Slot
}

// Slots lists the free slots of a resource on a calendar date in the resource's zone.
func (s *Service) Slots(ctx context.Context, req SlotsRequest) (DaySlots, error) {
	r, err := s.Resource(ctx, req.ResourceID)
	if err != nil {
		return DaySlots{}, err
	}
	return SlotsFor(ctx, s.bookings, r, req, s.VisitorZone(req.VisitorZone), s.now())
}

// SlotsFor runs slot generation for an already loaded resource, reading bookings
// through q. It lets a transaction reuse the same rules as the read path.
func SlotsFor(ctx context.Context, q availability.BookingQuery, r model.Resource, req SlotsRequest, visitorZone string, now time.Time) (DaySlots, error) {
	loc, err := tzconv.LoadZone(r.Timezone)
	if err != nil {
		return DaySlots{}, err
	}
	if !req.Date.IsValid() {
		return DaySlots{}, &apperr.InvalidDateError{Value: req.Date.String()}
	}
	bounds, err := slots.DateBounds(r, now)
	if err != nil {
		return DaySlots{}, err
	}
	out := DaySlots{ResourceID: r.ID, Date: req.Date, VisitorZone: visitorZone, Bounds: bounds}

	fromYear, toYear := exclusions.Years(civil.DateOf(now.In(loc)))
	if req.Date.Year > toYear {
		toYear = req.Date.Year
	}
	set, err := exclusions.Build(r, fromYear, toYear)
	if err != nil {
		return DaySlots{}, err
	}

	dayStart := tzconv.At(tzconv.WallClock{Year: req.Date.Year, Month: req.Date.Month, Day: req.Date.Day}, loc)
	next := req.Date.AddDays(1)
	dayEnd := tzconv.At(tzconv.WallClock{Year: next.Year, Month: next.Month, Day: next.Day}, loc)
	booked, err := q.ListConfirmedBookings(ctx, r.ID, dayStart, dayEnd)
	if err != nil {
		return DaySlots{}, fmt.Errorf("list bookings: %w", err)
	}
	checker := availability.NewChecker(r.ID, booked, r.UnavailablePeriods)
	if req.Ignore != "" {
		checker = checker.Without(req.Ignore)
	}

	seq, err := slots.Generate(slots.Request{
		Resource:    r,
		Date:        req.Date,
		Exclusions:  set,
		VisitorZone: visitorZone,
		Now:         now,
		Checker:     checker,
	})
	if err != nil {
		return DaySlots{}, err
	}
	out.Slots = slots.Collect(seq)
	return out, nil
}

func (s *Service) IsAvailable(ctx context.Context, resourceID string, start, end time.Time) (availability.Result, error) {
	if !end.After(start) {
		return availability.Result{}, &apperr.InvalidRangeError{Start: start, End: end}
	}
	r, err := s.Resource(ctx, resourceID)
	if err != nil {
		return availability.Result{}, err
	}
	return availability.IsAvailable(ctx, s.bookings, r, start, end)
}

type Calendar struct {
	ResourceID string
	Timezone   string
	FromYear   int
	ToYear     int
	Exclusions exclusions.Set
	Bounds     slots.Bounds
}

// Calendar returns the exclusion set for the current year through YearsAhead, along
// with the bookable date bounds.
func (s *Service) Calendar(ctx context.Context, resourceID string) (Calendar, error) {
	r, err := s.Resource(ctx, resourceID)
	if err != nil {
		return Calendar{}, err
	}
	loc, err := tzconv.LoadZone(r.Timezone)
	if err != nil {
		return Calendar{}, err
	}
	now := s.now()
	fromYear, toYear := exclusions.Years(civil.DateOf(now.In(loc)))
	set, err := exclusions.Build(r, fromYear, toYear)
	if err != nil {
		return Calendar{}, err
	}
	bounds, err := slots.DateBounds(r, now)
	if err != nil {
		return Calendar{}, err
	}
	return Calendar{
		ResourceID: r.ID,
		Timezone:   r.Timezone,
		FromYear:   fromYear,
		ToYear:     toYear,
		Exclusions: set,
		Bounds:     bounds,
	}, nil
}

type PriceRequest struct {
	ResourceID     string
	ConsultingType model.ConsultingType
	Service        string
	OnlinePayment  bool
}

type Price struct {
	ResourceID     string
	ConsultingType model.ConsultingType
	Service        string
	Currency       string
	Quote          pricing.Quote
}

func (s *Service) ComputePrice(ctx context.Context, req PriceRequest) (Price, error) {
	if !req.ConsultingType.Valid() {
		return Price{}, &apperr.InvalidArgumentError{Field: "consulting type", Value: string(req.ConsultingType)}
	}
	r, err := s.Resource(ctx, req.ResourceID)
	if err != nil {
		return Price{}, err
	}
	base, ok := r.Rate(req.ConsultingType)
	if !ok {
		return Price{}, fmt.Errorf("%w: no %s rate for resource %s", apperr.ErrNotFound, req.ConsultingType, r.ID)
	}

	in := pricing.Input{BaseRate: base, PlatformFeePercent: s.platform.PlatformFeePercent}
	out := Price{ResourceID: r.ID, ConsultingType: req.ConsultingType, Currency: r.Currency}
	if req.Service != "" {
		svc, ok := r.Service(req.Service)
		if !ok {
			return Price{}, fmt.Errorf("%w: service %q", apperr.ErrNotFound, req.Service)
		}
		pct := svc.Percentage
		in.ServiceSurchargePercent = &pct
		out.Service = svc.Name
	}
	in.OnlineDiscountPercent = s.platform.DiscountFor(req.OnlinePayment)

	q, err := s.calculator.Compute(in)
	if err != nil {
		return Price{}, err
	}
	out.Quote = q
	return out, nil
}

// IsNotFound reports whether err means a missing resource, rate or service.
func IsNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound)
}
