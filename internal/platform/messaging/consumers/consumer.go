package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/logger"
	"github.com/edocument-exchange/internal/platform/messaging/producers"
	"github.com/segmentio/kafka-go"
)

const (
	minRetryBackoff = 500 * time.Millisecond
	maxRetryBackoff = 30 * time.Second
)

// MessageHandler processes one message. A returned error means "try again";
// messages that can never succeed must be dealt with by the handler itself.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads submission requests at least once and in partition
// order. A failing message is retried with growing pauses and blocks the
// messages behind it, because committing any of them would acknowledge it.
type KafkaConsumer struct {
	reader     MessageReader
	logger     *slog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	startOffset := kafka.FirstOffset
	if cfg.StartOffset != 0 {
		startOffset = cfg.StartOffset
	}
	return &KafkaConsumer{
		logger:     logger.With("topic", cfg.RequestTopic, "group_id", cfg.ConsumerGroup),
		minBackoff: minRetryBackoff,
		maxBackoff: maxRetryBackoff,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       cfg.RequestTopic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: startOffset,
		}),
	}
}

// Subscribe starts the fetch loop in the background until ctx is canceled.
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic")
	go c.run(ctx, handler)
	return nil
}

func (c *KafkaConsumer) run(ctx context.Context, handler MessageHandler) {
	defer c.logger.Info("Kafka consumer stopped")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("Failed to fetch message from Kafka", "error", err)
			if !pause(ctx, c.minBackoff) {
				return
			}
			continue
		}
		if !c.process(ctx, msg, handler) {
			return
		}
	}
}

// process runs handler until it succeeds and commits the offset. It reports
// false when ctx ended first; the message is then redelivered on restart.
func (c *KafkaConsumer) process(ctx context.Context, msg kafka.Message, handler MessageHandler) bool {
	for _, h := range msg.Headers {
		if h.Key == producers.CorrelationHeader {
			ctx = logger.WithCorrelationID(ctx, string(h.Value))
		}
	}
	log := logger.FromContext(ctx, c.logger).With("partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))

	backoff := c.minBackoff
	for attempt := 1; ; attempt++ {
		err := handler(ctx, msg.Key, msg.Value)
		if err == nil {
			break
		}
		log.Error("Failed to process message", "attempt", attempt, "retry_in", backoff.String(), "error", err)
		if !pause(ctx, backoff) {
			return false
		}
		backoff = min(backoff*2, c.maxBackoff)
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		// the group hands the message out again after a rebalance
		log.Error("Failed to commit message", "error", err)
		return ctx.Err() == nil
	}
	log.Debug("Message committed")
	return true
}

// pause sleeps for d unless ctx ends first.
func pause(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader == nil {
		return nil
	}
	return c.reader.Close()
}
