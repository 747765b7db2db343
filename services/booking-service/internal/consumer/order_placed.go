package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/reservations"
	"github.com/segmentio/kafka-go"
)

const TopicOrderPlaced = "commerce.order.placed.v1"

type OrderPlaced struct {
	OrderID         string `json:"order_id"`
	ResourceID      string `json:"resource_id"`
	ConsultingStart string `json:"consulting_start"`
	CustomerID      string `json:"customer_id"`
	CustomerName    string `json:"customer_name"`
	ConsultingType  string `json:"consulting_type"`
	Notes           string `json:"notes,omitempty"`
}

func (p OrderPlaced) request() (reservations.ConfirmRequest, error) {
	if strings.TrimSpace(p.OrderID) == "" || strings.TrimSpace(p.ResourceID) == "" {
		return reservations.ConfirmRequest{}, errors.New("order_id and resource_id are required")
	}
	start, err := time.Parse(time.RFC3339, p.ConsultingStart)
	if err != nil {
		return reservations.ConfirmRequest{}, fmt.Errorf("consulting_start: %w", err)
	}
	ct := model.ConsultingType(p.ConsultingType)
	if ct == "" {
		ct = model.ConsultingInPerson
	}
	return reservations.ConfirmRequest{
		ResourceID:     p.ResourceID,
		Start:          start,
		CustomerID:     p.CustomerID,
		CustomerName:   p.CustomerName,
		ConsultingType: ct,
		OrderID:        p.OrderID,
		Notes:          p.Notes,
	}, nil
}

type Confirmer interface {
	Confirm(ctx context.Context, req reservations.ConfirmRequest) (model.Booking, error)
}

// lockRetries bounds how often a confirm is retried while another writer holds the
// resource's lock.
var lockRetries = []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, time.Second}

// OrderPlacedHandler turns a paid order into a confirmed booking. Payloads that can
// never succeed are logged and dropped; other failures are returned to the consumer.
func OrderPlacedHandler(logger *slog.Logger, confirmer Confirmer) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var payload OrderPlaced
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Warn("malformed order payload dropped", "err", err, "topic", msg.Topic)
			return nil
		}
		req, err := payload.request()
		if err != nil {
			logger.Warn("invalid order payload dropped", "err", err, "order_id", payload.OrderID)
			return nil
		}

		b, err := confirmer.Confirm(ctx, req)
		for _, wait := range lockRetries {
			if !errors.Is(err, apperr.ErrLocked) {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			b, err = confirmer.Confirm(ctx, req)
		}
		switch {
		case err == nil:
			logger.Info("order booked", "order_id", payload.OrderID, "booking_id", b.ID)
			return nil
		case errors.Is(err, apperr.ErrSlotUnavailable), errors.Is(err, apperr.ErrNotFound), apperr.IsInvalidInput(err):
			logger.Warn("order left for manual handling", "order_id", payload.OrderID, "err", err)
			return nil
		default:
			return fmt.Errorf("confirm order %s: %w", payload.OrderID, err)
		}
	}
}
