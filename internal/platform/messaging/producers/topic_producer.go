package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/edocument-exchange/internal/config"
	"github.com/segmentio/kafka-go"
)

// TopicProducer writes JSON values to a single Kafka topic. The gateway uses it
// for submission requests and the processor for document lifecycle events.
type TopicProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewRequestProducer creates the producer of submission requests.
func NewRequestProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*TopicProducer, error) {
	return newTopicProducer(logger, cfg, cfg.RequestTopic, true)
}

// NewEventProducer creates the producer of document lifecycle events. Writes are
// synchronous so the outbox only marks an event published once the broker has it.
func NewEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*TopicProducer, error) {
	return newTopicProducer(logger, cfg, cfg.EventTopic, false)
}

func newTopicProducer(logger *slog.Logger, cfg *config.KafkaConfig, topic string, async bool) (*TopicProducer, error) {
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for topic %s: %w", topic, err)
	}
	defer conn.Close()

	if err := createKafkaTopicIfNotExists(conn, topic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure topic %s exists: %w", topic, err)
	}

	acks := kafka.RequireAll
	if async {
		acks = kafka.RequireOne
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: acks,
		Async:        async,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages", "topic", topic, "error", err, "count", len(messages))
			}
		},
	}

	return &TopicProducer{
		logger: logger,
		writer: writer,
		topic:  topic,
	}, nil
}

// Publish writes value under key. Keys are record or flow references so that
// every message about one owner lands on the same partition.
func (p *TopicProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message for topic %s: %w", p.topic, err)
	}

	if err := p.writer.WriteMessages(ctx, newMessage(ctx, key, jsonValue)); err != nil {
		p.logger.Error("Failed to publish message", "topic", p.topic, "key", key, "error", err)
		return fmt.Errorf("failed to publish message to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published message", "topic", p.topic, "key", key)
	return nil
}

func (p *TopicProducer) Close() error {
	p.logger.Info("Closing Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
