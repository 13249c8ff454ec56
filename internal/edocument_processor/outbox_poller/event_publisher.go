package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edocument-exchange/internal/domain/outbox"
	"github.com/edocument-exchange/internal/logger"
	"github.com/edocument-exchange/internal/platform/messaging/producers"
)

// errUndecodable marks payloads no retry can fix.
var errUndecodable = errors.New("undecodable outbox payload")

// EventPublisher publishes one claimed outbox message
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

type kafkaEventPublisher struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

func NewEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &kafkaEventPublisher{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent sends the event under its owner key and closes the outbox row.
// The correlation ID recorded with the event travels on as a Kafka header.
func (p *kafkaEventPublisher) PublishEvent(ctx context.Context, message *outbox.Message) error {
	event, err := message.Event()
	if err != nil {
		p.logger.Error("Parking undecodable lifecycle event", "outbox_id", message.ID, "error", err)
		if markErr := p.outboxRepo.MarkFailed(ctx, message.ID, err.Error()); markErr != nil {
			p.logger.Error("Failed to park lifecycle event", "outbox_id", message.ID, "error", markErr)
		}
		return fmt.Errorf("%w %d: %v", errUndecodable, message.ID, err)
	}

	ctx = logger.WithCorrelationID(ctx, event.CorrelationID)
	log := logger.FromContext(ctx, p.logger).With("outbox_id", message.ID, "document_id", event.DocumentID)

	if err := p.producer.Publish(ctx, event.Key(), event); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.EventID, err)
	}

	if err := p.outboxRepo.MarkPublished(ctx, message.ID); err != nil {
		// the lease will expire and consumers see the event twice
		log.Error("Event published but not marked", "error", err)
		return fmt.Errorf("event %s published, but outbox %d stays pending: %w", event.EventID, message.ID, err)
	}

	log.Debug("Published lifecycle event", "state", event.State, "key", event.Key())
	return nil
}
