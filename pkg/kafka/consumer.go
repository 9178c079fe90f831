package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// maxHandlerRetries bounds handler attempts before a message is committed and skipped.
const maxHandlerRetries = 3

// Handler processes one consumed event.
type Handler func(ctx context.Context, event *Event) error

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic in a consumer group and commits after handling.
type Consumer struct {
	reader    messageReader
	topic     string
	group     string
	logger    *slog.Logger
	handler   Handler
	backoff   func(attempt int) time.Duration
	closeOnce sync.Once
}

// NewConsumer creates a new Kafka consumer for a specific topic and group.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	return newConsumer(r, cfg.Topic, cfg.GroupID, handler, logger)
}

func newConsumer(r messageReader, topic, group string, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:  r,
		topic:   topic,
		group:   group,
		logger:  logger,
		handler: handler,
		backoff: func(attempt int) time.Duration { return time.Duration(attempt) * 100 * time.Millisecond },
	}
}

// Start consumes until ctx is canceled. Undecodable messages and messages
// whose handler keeps failing are committed and skipped.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started", slog.String("topic", c.topic), slog.String("group", c.group))
	defer func() { _ = c.Close() }()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", slog.String("topic", c.topic))
				return nil
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			continue
		}

		if !c.process(ctx, msg) && ctx.Err() != nil {
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message", slog.String("error", err.Error()))
		}
	}
}

// process runs the handler with retries. It returns false only when ctx was
// canceled mid-retry, in which case the message is left uncommitted.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to unmarshal event",
			slog.String("error", err.Error()),
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
		)
		consumerMessagesSkipped.WithLabelValues(c.topic, c.group, skipUndecodable).Inc()
		return true
	}

	headers := msg.Headers
	hctx := otel.GetTextMapPropagator().Extract(ctx, NewKafkaHeaderCarrier(&headers))

	var lastErr error
	for attempt := 1; attempt <= maxHandlerRetries; attempt++ {
		if lastErr = c.handler(hctx, event); lastErr == nil {
			consumerMessagesProcessed.WithLabelValues(c.topic, c.group).Inc()
			return true
		}

		c.logger.Warn("handler failed",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.String("error", lastErr.Error()),
			slog.Int("attempt", attempt),
		)
		if attempt < maxHandlerRetries {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(c.backoff(attempt)):
			}
		}
	}

	consumerMessagesSkipped.WithLabelValues(c.topic, c.group, skipHandler).Inc()
	c.logger.Error("handler failed after all retries, skipping message",
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
		slog.String("error", lastErr.Error()),
		slog.String("topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	return true
}

// Close closes the consumer. It is safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}
