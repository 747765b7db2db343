package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/md-rashed-zaman/consultbook/libs/kafkax"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestNewBookingEvent(t *testing.T) {
	start := time.Date(2026, 10, 28, 8, 0, 0, 0, time.UTC)
	evt, err := NewBookingEvent(TypeBookingConfirmed, "b-1", BookingConfirmed{
		BookingID:  "b-1",
		ResourceID: "res-1",
		StartUTC:   start,
		EndUTC:     start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("NewBookingEvent: %v", err)
	}
	if evt.AggregateType != AggregateBooking || evt.AggregateID != "b-1" || evt.EventType != TypeBookingConfirmed {
		t.Fatalf("unexpected envelope %+v", evt)
	}

	var decoded map[string]any
	if err := json.Unmarshal(evt.Payload, &decoded); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if decoded["start_utc"] != "2026-10-28T08:00:00Z" {
		t.Fatalf("unexpected start_utc %v", decoded["start_utc"])
	}
	if _, ok := decoded["order_id"]; ok {
		t.Fatal("empty order_id should be omitted")
	}
}

func TestMessageCarriesMetaAndTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	const traceparent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

	msg := Message(context.Background(), Record{
		EventID:     "evt-1",
		AggregateID: "b-1",
		EventType:   TypeBookingCancelled,
		Payload:     []byte(`{}`),
		Traceparent: traceparent,
	})
	if msg.Topic != TypeBookingCancelled || string(msg.Key) != "b-1" {
		t.Fatalf("unexpected routing topic=%s key=%s", msg.Topic, msg.Key)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.EventType != TypeBookingCancelled {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if got := kafkax.HeaderValue(msg.Headers, "traceparent"); got != traceparent {
		t.Fatalf("expected traceparent to survive, got %q", got)
	}
}
