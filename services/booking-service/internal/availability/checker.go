package availability

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/model"
)

// Reason names the rule that made a candidate unavailable.
type Reason string

const (
	ReasonAvailable          Reason = "available"
	ReasonBookingStartInside Reason = "booking_start_inside"
	ReasonBookingEndInside   Reason = "booking_end_inside"
	ReasonBookingCoversSlot  Reason = "booking_covers_slot"
	ReasonUnavailablePeriod  Reason = "unavailable_period_overlap"
)

type Result struct {
	Available bool
	Reason    Reason
	// ConflictID is the booking or unavailable period that fired, when it has an id.
	ConflictID string
}

type Interval struct {
	ID    string
	Start time.Time
	End   time.Time
}

// BookingQuery lists confirmed bookings of a resource overlapping [from, to).
type BookingQuery interface {
	ListConfirmedBookings(ctx context.Context, resourceID string, from, to time.Time) ([]model.Booking, error)
}

// Checker answers availability questions against a fixed snapshot of bookings and
// unavailable periods. It holds no mutable state and is safe for concurrent use.
type Checker struct {
	bookings []Interval
	periods  []Interval
}

// NewChecker keeps only confirmed bookings that belong to resourceID.
func NewChecker(resourceID string, bookings []model.Booking, periods []model.UnavailablePeriod) *Checker {
	c := &Checker{}
	for _, b := range bookings {
		if b.State != model.StateConfirmed || b.ResourceID != resourceID {
			continue
		}
		c.bookings = append(c.bookings, Interval{ID: b.ID, Start: b.Start, End: b.End})
	}
	for _, p := range periods {
		c.periods = append(c.periods, Interval{ID: p.ID, Start: p.Start, End: p.End})
	}
	return c
}

// Without returns a checker that ignores one booking, used when an existing booking
// is being moved.
func (c *Checker) Without(bookingID string) *Checker {
	out := &Checker{periods: c.periods}
	for _, b := range c.bookings {
		if b.ID != bookingID {
			out.bookings = append(out.bookings, b)
		}
	}
	return out
}

// Check evaluates [start, end) against the snapshot. Rules are tried in order and the
// first one that fires is reported:
//
//  1. a booking starts strictly inside (start, end)
//  2. a booking ends inside (start, end]
//  3. a booking starts at or before start and ends after end
//  4. an unavailable period overlaps (start1 < end2 && start2 < end1)
func (c *Checker) Check(start, end time.Time) (Result, error) {
	if !end.After(start) {
		return Result{}, &apperr.InvalidRangeError{Start: start, End: end}
	}

	for _, b := range c.bookings {
		if b.Start.After(start) && b.Start.Before(end) {
			return unavailable(ReasonBookingStartInside, b.ID), nil
		}
	}
	for _, b := range c.bookings {
		if b.End.After(start) && !b.End.After(end) {
			return unavailable(ReasonBookingEndInside, b.ID), nil
		}
	}
	for _, b := range c.bookings {
		if !b.Start.After(start) && b.End.After(end) {
			return unavailable(ReasonBookingCoversSlot, b.ID), nil
		}
	}
	if p, ok := overlapsAny(start, end, c.periods); ok {
		return unavailable(ReasonUnavailablePeriod, p.ID), nil
	}
	return Result{Available: true, Reason: ReasonAvailable}, nil
}

func unavailable(reason Reason, id string) Result {
	return Result{Available: false, Reason: reason, ConflictID: id}
}

func overlapsAny(start, end time.Time, busy []Interval) (Interval, bool) {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start.Before(b.End) && b.Start.Before(end) {
			return b, true
		}
	}
	return Interval{}, false
}

// IsAvailable loads the bookings around [start, end) through q and checks them
// together with the resource's unavailable periods.
func IsAvailable(ctx context.Context, q BookingQuery, r model.Resource, start, end time.Time) (Result, error) {
	if !end.After(start) {
		return Result{}, &apperr.InvalidRangeError{Start: start, End: end}
	}
	bookings, err := q.ListConfirmedBookings(ctx, r.ID, start, end)
	if err != nil {
		return Result{}, err
	}
	return NewChecker(r.ID, bookings, r.UnavailablePeriods).Check(start, end)
}
