package outbox

import (
	"time"

	"github.com/goccy/go-json"
)

const (
	AggregateBooking = "booking"

	TypeBookingConfirmed   = "booking.confirmed.v1"
	TypeBookingCancelled   = "booking.cancelled.v1"
	TypeBookingRescheduled = "booking.rescheduled.v1"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type BookingConfirmed struct {
	BookingID      string    `json:"booking_id"`
	ResourceID     string    `json:"resource_id"`
	CustomerID     string    `json:"customer_id"`
	Title          string    `json:"title"`
	ConsultingType string    `json:"consulting_type"`
	OrderID        string    `json:"order_id,omitempty"`
	StartUTC       time.Time `json:"start_utc"`
	EndUTC         time.Time `json:"end_utc"`
}

type BookingCancelled struct {
	BookingID  string    `json:"booking_id"`
	ResourceID string    `json:"resource_id"`
	State      string    `json:"state"`
	Notes      string    `json:"notes,omitempty"`
	StartUTC   time.Time `json:"start_utc"`
	EndUTC     time.Time `json:"end_utc"`
}

type BookingRescheduled struct {
	BookingID        string    `json:"booking_id"`
	ResourceID       string    `json:"resource_id"`
	PreviousStartUTC time.Time `json:"previous_start_utc"`
	PreviousEndUTC   time.Time `json:"previous_end_utc"`
	StartUTC         time.Time `json:"start_utc"`
	EndUTC           time.Time `json:"end_utc"`
}

// NewBookingEvent encodes payload into an envelope keyed by the booking id.
func NewBookingEvent(eventType, bookingID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateBooking,
		AggregateID:   bookingID,
		EventType:     eventType,
		Payload:       raw,
	}, nil
}
