// Package reservations confirms, cancels and moves bookings. Every write re-runs slot
// generation inside a transaction while holding the resource's lock, so a booking can
// only land on a slot the read side would have offered.
package reservations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/locker"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/scheduling"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/tzconv"
)

// Tx is the transactional view of the booking store. Implementations map unique
// or exclusion violations on insert/update to apperr.ErrSlotUnavailable and missing
// rows to apperr.ErrNotFound.
type Tx interface {
	availability.BookingQuery
	GetResource(ctx context.Context, id string) (model.Resource, error)
	GetBookingForUpdate(ctx context.Context, id string) (model.Booking, error)
	CreateBooking(ctx context.Context, b model.Booking) error
	UpdateBooking(ctx context.Context, b model.Booking) error
	AppendEvent(ctx context.Context, evt outbox.Event) error
}

type Store interface {
	availability.BookingQuery
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	WithinTx(ctx context.Context, fn func(Tx) error) error
}

type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, string, error)
	Unlock(ctx context.Context, key, token string) error
}

const DefaultLockTTL = 10 * time.Second

type Service struct {
	store   Store
	locker  Locker
	lockTTL time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

type Option func(*Service)

// WithLocker enables the per-resource lock. Without it the database constraint is
// the only guard against concurrent writers.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(s *Service) {
		s.locker = l
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(logger *slog.Logger, store Store, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, lockTTL: DefaultLockTTL, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ConfirmRequest struct {
	ResourceID     string
	Start          time.Time
	CustomerID     string
	CustomerName   string
	ConsultingType model.ConsultingType
	OrderID        string
	Notes          string
}

func (r ConfirmRequest) validate() error {
	switch {
	case strings.TrimSpace(r.ResourceID) == "":
		return &apperr.InvalidArgumentError{Field: "resource id"}
	case strings.TrimSpace(r.CustomerName) == "":
		return &apperr.InvalidArgumentError{Field: "customer name"}
	case r.Start.IsZero():
		return &apperr.InvalidArgumentError{Field: "start"}
	case !r.ConsultingType.Valid():
		return &apperr.InvalidArgumentError{Field: "consulting type", Value: string(r.ConsultingType)}
	}
	return nil
}

// Confirm books the slot starting at req.Start.
func (s *Service) Confirm(ctx context.Context, req ConfirmRequest) (model.Booking, error) {
	if err := req.validate(); err != nil {
		return model.Booking{}, err
	}
	start := req.Start.UTC()

	var out model.Booking
	err := s.withLock(ctx, req.ResourceID, func() error {
		return s.store.WithinTx(ctx, func(tx Tx) error {
			r, loc, err := s.loadResource(ctx, tx, req.ResourceID)
			if err != nil {
				return err
			}
			if err := s.requireSlot(ctx, tx, r, loc, start, ""); err != nil {
				return err
			}

			now := s.now().UTC()
			b := model.Booking{
				ID:             uuid.NewString(),
				ResourceID:     r.ID,
				CustomerID:     req.CustomerID,
				CustomerName:   strings.TrimSpace(req.CustomerName),
				Start:          start,
				End:            start.Add(r.ConsultingDuration()),
				State:          model.StateConfirmed,
				ConsultingType: req.ConsultingType,
				OrderID:        req.OrderID,
				Notes:          req.Notes,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			b.Title = model.BookingTitle(b.CustomerName, b.Start, loc)
			if err := tx.CreateBooking(ctx, b); err != nil {
				return err
			}

			evt, err := outbox.NewBookingEvent(outbox.TypeBookingConfirmed, b.ID, outbox.BookingConfirmed{
				BookingID:      b.ID,
				ResourceID:     b.ResourceID,
				CustomerID:     b.CustomerID,
				Title:          b.Title,
				ConsultingType: string(b.ConsultingType),
				OrderID:        b.OrderID,
				StartUTC:       b.Start,
				EndUTC:         b.End,
			})
			if err != nil {
				return err
			}
			if err := tx.AppendEvent(ctx, evt); err != nil {
				return fmt.Errorf("append event: %w", err)
			}
			out = b
			return nil
		})
	})
	if err != nil {
		return model.Booking{}, err
	}
	s.logger.Info("booking confirmed", "booking_id", out.ID, "resource_id", out.ResourceID, "start", out.Start)
	return out, nil
}

// Cancel moves a confirmed booking into the cancelled state for party. Cancelled
// states are terminal.
func (s *Service) Cancel(ctx context.Context, bookingID string, party model.CancelParty, notes string) (model.Booking, error) {
	state, ok := party.State()
	if !ok {
		return model.Booking{}, &apperr.InvalidArgumentError{Field: "cancelled by", Value: string(party)}
	}

	var out model.Booking
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		b, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.State != model.StateConfirmed {
			return apperr.ErrNotCancellable
		}
		b.State = state
		b.CancellationNotes = notes
		b.UpdatedAt = s.now().UTC()
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}

		evt, err := outbox.NewBookingEvent(outbox.TypeBookingCancelled, b.ID, outbox.BookingCancelled{
			BookingID:  b.ID,
			ResourceID: b.ResourceID,
			State:      string(b.State),
			Notes:      notes,
			StartUTC:   b.Start,
			EndUTC:     b.End,
		})
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, evt); err != nil {
			return fmt.Errorf("append event: %w", err)
		}
		out = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	s.logger.Info("booking cancelled", "booking_id", out.ID, "state", out.State)
	return out, nil
}

// Reschedule moves a confirmed booking to the slot starting at newStart. The
// booking's own interval does not block the move.
func (s *Service) Reschedule(ctx context.Context, bookingID string, newStart time.Time) (model.Booking, error) {
	if newStart.IsZero() {
		return model.Booking{}, &apperr.InvalidArgumentError{Field: "start"}
	}
	current, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	newStart = newStart.UTC()

	var out model.Booking
	err = s.withLock(ctx, current.ResourceID, func() error {
		return s.store.WithinTx(ctx, func(tx Tx) error {
			b, err := tx.GetBookingForUpdate(ctx, bookingID)
			if err != nil {
				return err
			}
			if b.State != model.StateConfirmed {
				return apperr.ErrNotCancellable
			}
			r, loc, err := s.loadResource(ctx, tx, b.ResourceID)
			if err != nil {
				return err
			}
			if err := s.requireSlot(ctx, tx, r, loc, newStart, b.ID); err != nil {
				return err
			}

			prevStart, prevEnd := b.Start, b.End
			b.Start = newStart
			b.End = newStart.Add(r.ConsultingDuration())
			b.Title = model.BookingTitle(b.CustomerName, b.Start, loc)
			b.UpdatedAt = s.now().UTC()
			if err := tx.UpdateBooking(ctx, b); err != nil {
				return err
			}

			evt, err := outbox.NewBookingEvent(outbox.TypeBookingRescheduled, b.ID, outbox.BookingRescheduled{
				BookingID:        b.ID,
				ResourceID:       b.ResourceID,
				PreviousStartUTC: prevStart,
				PreviousEndUTC:   prevEnd,
				StartUTC:         b.Start,
				EndUTC:           b.End,
			})
			if err != nil {
				return err
			}
			if err := tx.AppendEvent(ctx, evt); err != nil {
				return fmt.Errorf("append event: %w", err)
			}
			out = b
			return nil
		})
	})
	if err != nil {
		return model.Booking{}, err
	}
	s.logger.Info("booking rescheduled", "booking_id", out.ID, "start", out.Start)
	return out, nil
}

func (s *Service) Get(ctx context.Context, bookingID string) (model.Booking, error) {
	return s.store.GetBooking(ctx, bookingID)
}

// List returns the confirmed bookings of a resource overlapping [from, to).
func (s *Service) List(ctx context.Context, resourceID string, from, to time.Time) ([]model.Booking, error) {
	if !to.After(from) {
		return nil, &apperr.InvalidRangeError{Start: from, End: to}
	}
	return s.store.ListConfirmedBookings(ctx, resourceID, from, to)
}

func (s *Service) loadResource(ctx context.Context, tx Tx, id string) (model.Resource, *time.Location, error) {
	r, err := tx.GetResource(ctx, id)
	if err != nil {
		return model.Resource{}, nil, err
	}
	loc, err := tzconv.LoadZone(r.Timezone)
	if err != nil {
		return model.Resource{}, nil, err
	}
	return r, loc, nil
}

// requireSlot fails with ErrSlotUnavailable unless start is the start of a slot the
// generator offers for that local date.
func (s *Service) requireSlot(ctx context.Context, tx Tx, r model.Resource, loc *time.Location, start time.Time, ignore string) error {
	day, err := scheduling.SlotsFor(ctx, tx, r, scheduling.SlotsRequest{
		ResourceID: r.ID,
		Date:       civil.DateOf(start.In(loc)),
		Ignore:     ignore,
	}, "UTC", s.now())
	if err != nil {
		return err
	}
	for _, slot := range day.Slots {
		if slot.StartUTC.Equal(start) {
			return nil
		}
	}
	return apperr.ErrSlotUnavailable
}

func (s *Service) withLock(ctx context.Context, resourceID string, fn func() error) error {
	if s.locker == nil {
		return fn()
	}
	key := locker.Key(resourceID)
	ok, token, err := s.locker.TryLock(ctx, key, s.lockTTL)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrLocked
	}
	defer func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger.Warn("release booking lock failed", "key", key, "err", err)
		}
	}()
	return fn()
}

// IsConflict reports outcomes a client may resolve by picking another slot or retrying.
func IsConflict(err error) bool {
	return errors.Is(err, apperr.ErrSlotUnavailable) || errors.Is(err, apperr.ErrLocked) || errors.Is(err, apperr.ErrNotCancellable)
}
