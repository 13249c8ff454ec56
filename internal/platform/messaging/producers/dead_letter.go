package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/logger"
	"github.com/segmentio/kafka-go"
)

// DeadLetter is the envelope written to the DLQ topic.
type DeadLetter struct {
	OriginalKey   string          `json:"original_key"`
	OriginalValue json.RawMessage `json:"original_value"`
	Reason        string          `json:"reason"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

type DLQProducer struct {
	logger   *slog.Logger
	writer   KafkaWriter
	dlqTopic string
	now      func() time.Time
}

// NewDLQProducer returns a nil producer when no DLQ topic is configured.
func NewDLQProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("DLQ topic is not configured, dead letters are dropped")
		return nil, nil
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for dlq producer: %w", err)
	}
	defer conn.Close()

	if err := createKafkaTopicIfNotExists(conn, cfg.DLQTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure DLQ topic %s exists: %w", cfg.DLQTopic, err)
	}

	return &DLQProducer{
		logger: logger,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers),
			Topic:        cfg.DLQTopic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: cfg.MaxWait,
		},
		dlqTopic: cfg.DLQTopic,
		now:      time.Now,
	}, nil
}

// PublishToDLQ wraps the original message with the failure reason. Values that
// are not valid JSON are stored as a JSON string.
func (p *DLQProducer) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	if p == nil || p.writer == nil {
		return fmt.Errorf("DLQ producer not initialized")
	}

	original := json.RawMessage(originalMessageValue)
	if !json.Valid(originalMessageValue) {
		quoted, err := json.Marshal(string(originalMessageValue))
		if err != nil {
			return fmt.Errorf("failed to quote DLQ value: %w", err)
		}
		original = quoted
	}

	letter := DeadLetter{
		OriginalKey:   key,
		OriginalValue: original,
		Reason:        reason,
		CorrelationID: logger.CorrelationID(ctx),
		Timestamp:     p.now().UTC(),
	}
	value, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ message: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, newMessage(ctx, key, value, ReasonHeader, reason)); err != nil {
		p.logger.Error("Failed to publish message to DLQ", "topic", p.dlqTopic, "key", key, "error", err)
		return fmt.Errorf("failed to publish message to DLQ %s: %w", p.dlqTopic, err)
	}

	p.logger.Info("Published message to DLQ", "topic", p.dlqTopic, "key", key, "reason", reason)
	return nil
}

func (p *DLQProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	p.logger.Info("Closing DLQ producer", "topic", p.dlqTopic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close dlq kafka writer for topic %s: %w", p.dlqTopic, err)
	}
	return nil
}
