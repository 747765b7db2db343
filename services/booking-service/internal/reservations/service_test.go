package reservations

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sunday 2026-10-18 12:00 UTC.
var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type memStore struct {
	mu        sync.Mutex
	resources map[string]model.Resource
	bookings  map[string]model.Booking
	events    []outbox.Event
	failWrite error
}

func newMemStore(resources ...model.Resource) *memStore {
	s := &memStore{resources: map[string]model.Resource{}, bookings: map[string]model.Booking{}}
	for _, r := range resources {
		s.resources[r.ID] = r
	}
	return s
}

func (s *memStore) WithinTx(ctx context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bookings := maps.Clone(s.bookings)
	events := len(s.events)
	if err := fn(memTx{s}); err != nil {
		s.bookings = bookings
		s.events = s.events[:events]
		return err
	}
	return nil
}

func (s *memStore) GetBooking(_ context.Context, id string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getBooking(id)
}

func (s *memStore) getBooking(id string) (model.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, fmt.Errorf("booking %s: %w", id, apperr.ErrNotFound)
	}
	return b, nil
}

func (s *memStore) ListConfirmedBookings(_ context.Context, resourceID string, from, to time.Time) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listConfirmed(resourceID, from, to), nil
}

func (s *memStore) listConfirmed(resourceID string, from, to time.Time) []model.Booking {
	var out []model.Booking
	for _, b := range s.bookings {
		if b.ResourceID == resourceID && b.State == model.StateConfirmed && b.Start.Before(to) && from.Before(b.End) {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b model.Booking) int { return a.Start.Compare(b.Start) })
	return out
}

// memTx runs with memStore.mu already held.
type memTx struct{ s *memStore }

func (t memTx) GetResource(_ context.Context, id string) (model.Resource, error) {
	r, ok := t.s.resources[id]
	if !ok {
		return model.Resource{}, fmt.Errorf("resource %s: %w", id, apperr.ErrNotFound)
	}
	return r, nil
}

func (t memTx) ListConfirmedBookings(_ context.Context, resourceID string, from, to time.Time) ([]model.Booking, error) {
	return t.s.listConfirmed(resourceID, from, to), nil
}

func (t memTx) GetBookingForUpdate(_ context.Context, id string) (model.Booking, error) {
	return t.s.getBooking(id)
}

func (t memTx) CreateBooking(_ context.Context, b model.Booking) error {
	if t.s.failWrite != nil {
		return t.s.failWrite
	}
	t.s.bookings[b.ID] = b
	return nil
}

func (t memTx) UpdateBooking(_ context.Context, b model.Booking) error {
	if t.s.failWrite != nil {
		return t.s.failWrite
	}
	t.s.bookings[b.ID] = b
	return nil
}

func (t memTx) AppendEvent(_ context.Context, evt outbox.Event) error {
	t.s.events = append(t.s.events, evt)
	return nil
}

type memLocker struct {
	mu       sync.Mutex
	held     map[string]string
	released []string
}

func (l *memLocker) TryLock(_ context.Context, key string, _ time.Duration) (bool, string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]string{}
	}
	if _, busy := l.held[key]; busy {
		return false, "", nil
	}
	l.held[key] = "token-" + key
	return true, l.held[key], nil
}

func (l *memLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] != token {
		return errors.New("not owner")
	}
	delete(l.held, key)
	l.released = append(l.released, key)
	return nil
}

func office() model.Resource {
	var hours []model.OpenHours
	for d := 1; d <= 5; d++ {
		hours = append(hours, model.OpenHours{Weekday: d, StartMinute: 9 * 60, EndMinute: 17 * 60})
	}
	return model.Resource{
		ID:              "res-1",
		Timezone:        "Europe/Rome",
		OpenHours:       hours,
		MaxBookableDays: 30,
	}
}

func newService(store *memStore, l *memLocker) *Service {
	opts := []Option{WithClock(func() time.Time { return now })}
	if l != nil {
		opts = append(opts, WithLocker(l, time.Second))
	}
	return NewService(nil, store, opts...)
}

func confirmAt(start time.Time) ConfirmRequest {
	return ConfirmRequest{
		ResourceID:     "res-1",
		Start:          start,
		CustomerID:     "cust-1",
		CustomerName:   "Mario Bianchi",
		ConsultingType: model.ConsultingOnline,
	}
}

// 2026-10-28 09:00 Europe/Rome.
var slotStart = time.Date(2026, 10, 28, 8, 0, 0, 0, time.UTC)

func TestConfirm(t *testing.T) {
	store := newMemStore(office())
	l := &memLocker{}
	svc := newService(store, l)

	b, err := svc.Confirm(context.Background(), confirmAt(slotStart))
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, model.StateConfirmed, b.State)
	assert.Equal(t, slotStart.Add(time.Hour), b.End)
	assert.Equal(t, "Mario Bianchi - 2026-10-28 09:00", b.Title)
	assert.Equal(t, []string{"booking:lock:res-1"}, l.released)

	require.Len(t, store.events, 1)
	assert.Equal(t, outbox.TypeBookingConfirmed, store.events[0].EventType)
	assert.Equal(t, b.ID, store.events[0].AggregateID)

	_, err = svc.Confirm(context.Background(), confirmAt(slotStart))
	assert.ErrorIs(t, err, apperr.ErrSlotUnavailable, "second booking of the same slot")
	assert.Len(t, store.bookings, 1)
}

func TestConfirmRejectsWhatTheGeneratorWouldNotOffer(t *testing.T) {
	store := newMemStore(office())
	svc := newService(store, nil)
	ctx := context.Background()

	cases := map[string]time.Time{
		"off the slot grid":     slotStart.Add(30 * time.Minute),
		"inside notice":         time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC),
		"closed weekday":        time.Date(2026, 10, 31, 8, 0, 0, 0, time.UTC),
		"past the look-ahead":   time.Date(2026, 12, 1, 8, 0, 0, 0, time.UTC),
		"outside opening hours": time.Date(2026, 10, 28, 17, 0, 0, 0, time.UTC),
	}
	for name, start := range cases {
		_, err := svc.Confirm(ctx, confirmAt(start))
		assert.ErrorIs(t, err, apperr.ErrSlotUnavailable, name)
	}
	assert.Empty(t, store.bookings)
	assert.Empty(t, store.events)
}

func TestConfirmValidation(t *testing.T) {
	svc := newService(newMemStore(office()), nil)

	req := confirmAt(slotStart)
	req.CustomerName = " "
	_, err := svc.Confirm(context.Background(), req)
	assert.True(t, apperr.IsInvalidInput(err))

	req = confirmAt(slotStart)
	req.ConsultingType = "phone"
	_, err = svc.Confirm(context.Background(), req)
	assert.True(t, apperr.IsInvalidInput(err))

	req = confirmAt(slotStart)
	req.ResourceID = "missing"
	_, err = svc.Confirm(context.Background(), req)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConfirmWhileLocked(t *testing.T) {
	l := &memLocker{held: map[string]string{"booking:lock:res-1": "someone-else"}}
	svc := newService(newMemStore(office()), l)

	_, err := svc.Confirm(context.Background(), confirmAt(slotStart))
	assert.ErrorIs(t, err, apperr.ErrLocked)
	assert.True(t, IsConflict(err))
}

func TestConfirmStorageConflictRollsBack(t *testing.T) {
	store := newMemStore(office())
	store.failWrite = fmt.Errorf("insert booking: %w", apperr.ErrSlotUnavailable)
	svc := newService(store, nil)

	_, err := svc.Confirm(context.Background(), confirmAt(slotStart))
	assert.ErrorIs(t, err, apperr.ErrSlotUnavailable)
	assert.Empty(t, store.events)
}

func TestCancel(t *testing.T) {
	store := newMemStore(office())
	svc := newService(store, nil)
	ctx := context.Background()

	b, err := svc.Confirm(ctx, confirmAt(slotStart))
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, b.ID, model.CancelByHost, "doctor unwell")
	require.NoError(t, err)
	assert.Equal(t, model.StateCancelledByHost, cancelled.State)
	assert.Equal(t, "doctor unwell", cancelled.CancellationNotes)
	assert.Equal(t, outbox.TypeBookingCancelled, store.events[len(store.events)-1].EventType)

	_, err = svc.Cancel(ctx, b.ID, model.CancelByUser, "")
	assert.ErrorIs(t, err, apperr.ErrNotCancellable, "cancelled is terminal")

	_, err = svc.Cancel(ctx, "nope", model.CancelByUser, "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Cancel(ctx, b.ID, "admin", "")
	assert.True(t, apperr.IsInvalidInput(err))

	again, err := svc.Confirm(ctx, confirmAt(slotStart))
	require.NoError(t, err, "a cancelled booking frees its slot")
	assert.NotEqual(t, b.ID, again.ID)
}

func TestReschedule(t *testing.T) {
	store := newMemStore(office())
	l := &memLocker{}
	svc := newService(store, l)
	ctx := context.Background()

	b, err := svc.Confirm(ctx, confirmAt(slotStart))
	require.NoError(t, err)
	other, err := svc.Confirm(ctx, confirmAt(slotStart.Add(2*time.Hour)))
	require.NoError(t, err)

	_, err = svc.Reschedule(ctx, b.ID, other.Start)
	assert.ErrorIs(t, err, apperr.ErrSlotUnavailable)

	moved, err := svc.Reschedule(ctx, b.ID, slotStart.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, slotStart.Add(time.Hour), moved.Start)
	assert.Equal(t, slotStart.Add(2*time.Hour), moved.End)
	assert.Equal(t, "Mario Bianchi - 2026-10-28 10:00", moved.Title)

	last := store.events[len(store.events)-1]
	require.Equal(t, outbox.TypeBookingRescheduled, last.EventType)
	var payload outbox.BookingRescheduled
	require.NoError(t, json.Unmarshal(last.Payload, &payload))
	assert.True(t, payload.PreviousStartUTC.Equal(slotStart))
	assert.True(t, payload.StartUTC.Equal(moved.Start))

	_, err = svc.Reschedule(ctx, b.ID, slotStart.Add(time.Hour))
	assert.NoError(t, err, "a booking does not conflict with itself")

	_, err = svc.Cancel(ctx, b.ID, model.CancelByUser, "")
	require.NoError(t, err)
	_, err = svc.Reschedule(ctx, b.ID, slotStart.Add(3*time.Hour))
	assert.ErrorIs(t, err, apperr.ErrNotCancellable)
	assert.Empty(t, l.held)
}

func TestList(t *testing.T) {
	store := newMemStore(office())
	svc := newService(store, nil)
	ctx := context.Background()

	for _, h := range []int{0, 1, 3} {
		_, err := svc.Confirm(ctx, confirmAt(slotStart.Add(time.Duration(h)*time.Hour)))
		require.NoError(t, err)
	}

	got, err := svc.List(ctx, "res-1", slotStart.Add(30*time.Minute), slotStart.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Start.Before(got[1].Start))

	_, err = svc.List(ctx, "res-1", slotStart, slotStart)
	assert.True(t, apperr.IsInvalidInput(err))
}
