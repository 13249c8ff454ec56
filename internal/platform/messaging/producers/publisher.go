package producers

import (
	"context"

	"github.com/edocument-exchange/internal/logger"
	"github.com/segmentio/kafka-go"
)

// Header keys set on outgoing messages. The consumer reads CorrelationHeader
// back into the handler context.
const (
	CorrelationHeader = "correlation-id"
	ReasonHeader      = "dlq-reason"
)

// MessagePublisher writes JSON values to one topic. Implementations must be
// safe for concurrent use by the worker pool.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher receives submission requests that can never succeed, such
// as undecodable payloads or unknown profiles.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the part of *kafka.Writer the producers use.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// newMessage builds a keyed message carrying the correlation ID of ctx plus
// any extra headers given as key/value pairs.
func newMessage(ctx context.Context, key string, value []byte, extra ...string) kafka.Message {
	msg := kafka.Message{Key: []byte(key), Value: value}
	if id := logger.CorrelationID(ctx); id != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: CorrelationHeader, Value: []byte(id)})
	}
	for i := 0; i+1 < len(extra); i += 2 {
		msg.Headers = append(msg.Headers, kafka.Header{Key: extra[i], Value: []byte(extra[i+1])})
	}
	return msg
}

// header returns the value of the first header named key.
func header(msg kafka.Message, key string) (string, bool) {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}
