package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/md-rashed-zaman/consultbook/libs/kafkax"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/reservations"
	"github.com/segmentio/kafka-go"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memInbox struct {
	seen      map[string]bool
	forgotten []string
}

func (m *memInbox) Record(_ context.Context, eventID, _ string) (bool, error) {
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

func (m *memInbox) Forget(_ context.Context, eventID string) error {
	delete(m.seen, eventID)
	m.forgotten = append(m.forgotten, eventID)
	return nil
}

type sliceReader struct {
	msgs      []kafka.Message
	cancel    context.CancelFunc
	closed    bool
	committed []kafka.Message
}

func (r *sliceReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *sliceReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *sliceReader) Close() error {
	r.closed = true
	return nil
}

func eventMsg(id string, value string) kafka.Message {
	return kafka.Message{
		Topic:   TopicOrderPlaced,
		Value:   []byte(value),
		Headers: kafkax.EventMeta{EventID: id, EventType: TopicOrderPlaced}.Headers(),
	}
}

func fastRetries(t *testing.T) {
	t.Helper()
	saved := retryBackoff
	retryBackoff = []time.Duration{time.Millisecond}
	t.Cleanup(func() { retryBackoff = saved })
}

func TestRunDedupesAndCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, second := eventMsg("evt-1", "ok"), eventMsg("evt-1", "ok")
	first.Offset, second.Offset = 1, 2
	reader := &sliceReader{cancel: cancel, msgs: []kafka.Message{first, second}}
	var handled int
	handler := func(context.Context, kafka.Message) error {
		handled++
		return nil
	}

	NewWithReader(discard(), &memInbox{}, reader, handler).Run(ctx)

	if handled != 1 {
		t.Fatalf("expected one delivery, got %d", handled)
	}
	if len(reader.committed) != 2 || reader.committed[0].Offset != 1 || reader.committed[1].Offset != 2 {
		t.Fatalf("expected both offsets committed, got %v", reader.committed)
	}
	if !reader.closed {
		t.Fatal("reader was not closed")
	}
}

func TestRunRetriesFailedMessageBeforeCommitting(t *testing.T) {
	fastRetries(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &sliceReader{cancel: cancel, msgs: []kafka.Message{eventMsg("evt-2", "flaky")}}
	inbox := &memInbox{}
	attempts := 0
	handler := func(context.Context, kafka.Message) error {
		attempts++
		if attempts < 3 {
			if len(reader.committed) != 0 {
				t.Errorf("offset committed before the message was handled")
			}
			return errors.New("db down")
		}
		return nil
	}

	NewWithReader(discard(), inbox, reader, handler).Run(ctx)

	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if len(inbox.forgotten) != 2 {
		t.Fatalf("expected failed attempts to release the inbox entry, got %v", inbox.forgotten)
	}
	if len(reader.committed) != 1 {
		t.Fatalf("expected a single commit after success, got %d", len(reader.committed))
	}
}

func TestRunLeavesFailingMessageUncommitted(t *testing.T) {
	fastRetries(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &sliceReader{cancel: cancel, msgs: []kafka.Message{
		eventMsg("evt-3", "fail"),
		eventMsg("evt-4", "never reached"),
	}}
	attempts := 0
	handler := func(_ context.Context, msg kafka.Message) error {
		if string(msg.Value) != "fail" {
			t.Errorf("later message handled while an earlier one is failing")
		}
		attempts++
		if attempts == 4 {
			cancel()
		}
		return errors.New("still locked")
	}

	NewWithReader(discard(), &memInbox{}, reader, handler).Run(ctx)

	if len(reader.committed) != 0 {
		t.Fatalf("failed message must not be committed, got %v", reader.committed)
	}
	if attempts != 4 {
		t.Fatalf("expected retries until shutdown, got %d attempts", attempts)
	}
}

type failingForgetInbox struct {
	memInbox
}

func (f *failingForgetInbox) Forget(context.Context, string) error {
	return errors.New("inbox unavailable")
}

func TestRunRetriesAfterForgetFails(t *testing.T) {
	fastRetries(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &sliceReader{cancel: cancel, msgs: []kafka.Message{eventMsg("evt-5", "flaky")}}
	attempts := 0
	handler := func(context.Context, kafka.Message) error {
		attempts++
		if attempts == 1 {
			return errors.New("db down")
		}
		return nil
	}

	NewWithReader(discard(), &failingForgetInbox{}, reader, handler).Run(ctx)

	if attempts != 2 {
		t.Fatalf("retry must not be dropped as a duplicate, got %d attempts", attempts)
	}
	if len(reader.committed) != 1 {
		t.Fatalf("expected commit after retry, got %d", len(reader.committed))
	}
}

func TestRunProcessesEventsWithoutID(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	anonymous := func(v string) kafka.Message { return kafka.Message{Topic: TopicOrderPlaced, Value: []byte(v)} }
	reader := &sliceReader{cancel: cancel, msgs: []kafka.Message{anonymous("a"), anonymous("b")}}
	inbox := &memInbox{}
	var handled []string
	handler := func(_ context.Context, msg kafka.Message) error {
		handled = append(handled, string(msg.Value))
		return nil
	}

	NewWithReader(discard(), inbox, reader, handler).Run(ctx)

	if len(handled) != 2 {
		t.Fatalf("expected both id-less events handled, got %v", handled)
	}
	if len(inbox.seen) != 0 {
		t.Fatalf("id-less events must not be recorded, got %v", inbox.seen)
	}
}

type stubConfirmer struct {
	errs []error
	got  []reservations.ConfirmRequest
}

func (s *stubConfirmer) Confirm(_ context.Context, req reservations.ConfirmRequest) (model.Booking, error) {
	s.got = append(s.got, req)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return model.Booking{}, err
		}
	}
	return model.Booking{ID: "b-1"}, nil
}

const validOrder = `{"order_id":"ord-1","resource_id":"res-1","consulting_start":"2026-10-28T08:00:00Z",
	"customer_id":"cust-1","customer_name":"Mario Bianchi","consulting_type":"online"}`

func TestOrderPlacedHandler(t *testing.T) {
	c := &stubConfirmer{}
	h := OrderPlacedHandler(discard(), c)

	if err := h(context.Background(), eventMsg("e", validOrder)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(c.got) != 1 {
		t.Fatalf("expected one confirm, got %d", len(c.got))
	}
	req := c.got[0]
	if req.OrderID != "ord-1" || req.ResourceID != "res-1" || req.ConsultingType != model.ConsultingOnline {
		t.Fatalf("unexpected request %+v", req)
	}
	if !req.Start.Equal(time.Date(2026, 10, 28, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", req.Start)
	}
}

func TestOrderPlacedHandlerDropsWhatCannotSucceed(t *testing.T) {
	for name, value := range map[string]string{
		"not json":      `{`,
		"missing order": `{"resource_id":"res-1","consulting_start":"2026-10-28T08:00:00Z"}`,
		"bad start":     `{"order_id":"o","resource_id":"r","consulting_start":"tomorrow"}`,
	} {
		c := &stubConfirmer{}
		if err := OrderPlacedHandler(discard(), c)(context.Background(), eventMsg("e", value)); err != nil {
			t.Fatalf("%s: expected drop, got %v", name, err)
		}
		if len(c.got) != 0 {
			t.Fatalf("%s: confirm should not run", name)
		}
	}

	c := &stubConfirmer{errs: []error{apperr.ErrSlotUnavailable}}
	if err := OrderPlacedHandler(discard(), c)(context.Background(), eventMsg("e", validOrder)); err != nil {
		t.Fatalf("taken slot should be dropped, got %v", err)
	}
}

func TestOrderPlacedHandlerRetriesLockAndSurfacesFailures(t *testing.T) {
	saved := lockRetries
	lockRetries = []time.Duration{time.Millisecond, time.Millisecond}
	defer func() { lockRetries = saved }()

	c := &stubConfirmer{errs: []error{apperr.ErrLocked, nil}}
	if err := OrderPlacedHandler(discard(), c)(context.Background(), eventMsg("e", validOrder)); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if len(c.got) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(c.got))
	}

	boom := errors.New("db down")
	c = &stubConfirmer{errs: []error{boom}}
	if err := OrderPlacedHandler(discard(), c)(context.Background(), eventMsg("e", validOrder)); !errors.Is(err, boom) {
		t.Fatalf("expected db error, got %v", err)
	}
}
