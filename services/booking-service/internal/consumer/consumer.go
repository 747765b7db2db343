package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/consultbook/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Inbox dedupes deliveries by event id.
type Inbox interface {
	Record(ctx context.Context, eventID string, eventType string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// MessageReader is the part of *kafka.Reader the loop needs. Offsets are committed
// explicitly, only once a message is handled or deliberately dropped.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// retryBackoff spaces attempts at a message whose handler failed; the last step repeats.
var retryBackoff = []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}

type Consumer struct {
	reader  MessageReader
	logger  *slog.Logger
	inbox   Inbox
	handler Handler
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

func New(logger *slog.Logger, inbox Inbox, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  kafkax.SplitBrokers(cfg.Brokers),
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return NewWithReader(logger, inbox, reader, handler)
}

func NewWithReader(logger *slog.Logger, inbox Inbox, reader MessageReader, handler Handler) *Consumer {
	return &Consumer{
		reader:  reader,
		logger:  logger,
		inbox:   inbox,
		handler: handler,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", "err", err)
			if !sleep(ctx, time.Second) {
				return
			}
			continue
		}
		if !c.handle(ctx, msg) {
			return
		}
		if err := c.reader.CommitMessages(context.WithoutCancel(ctx), msg); err != nil {
			// The message comes back after a rebalance and the inbox drops it.
			c.logger.Error("kafka commit failed", "err", err,
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
		}
	}
}

// handle retries msg until it is processed. It reports false when ctx ends first,
// leaving the offset uncommitted.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) bool {
	claimed := false
	for attempt := 0; ; attempt++ {
		err := c.process(ctx, msg, &claimed)
		if err == nil {
			return true
		}
		wait := retryBackoff[min(attempt, len(retryBackoff)-1)]
		c.logger.Warn("message will be retried", "err", err,
			"topic", msg.Topic, "offset", msg.Offset, "attempt", attempt+1, "backoff", wait.String())
		if !sleep(ctx, wait) {
			return false
		}
	}
}

// process runs msg once. claimed tracks whether this delivery holds the inbox entry
// for its event id, so a retry after a failed Forget is not taken for a duplicate.
func (c *Consumer) process(ctx context.Context, msg kafka.Message, claimed *bool) error {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)

	// Without an id there is nothing to dedupe on; the handler must be idempotent.
	dedupe := meta.EventID != ""
	if !dedupe {
		c.logger.Warn("event without id processed without dedupe", "topic", msg.Topic, "offset", msg.Offset)
	} else if !*claimed {
		ok, err := c.inbox.Record(ctxSpan, meta.EventID, meta.EventType)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("inbox record: %w", err)
		}
		if !ok {
			c.logger.Warn("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
			return nil
		}
		*claimed = true
	}

	if err := c.handler(ctxSpan, msg); err != nil {
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if dedupe {
			if ferr := c.inbox.Forget(context.WithoutCancel(ctxSpan), meta.EventID); ferr != nil {
				c.logger.Error("inbox forget failed", "err", ferr, "event_id", meta.EventID)
			} else {
				*claimed = false
			}
		}
		return err
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
