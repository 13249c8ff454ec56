package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edocument-exchange/internal/domain/edocument"
	"github.com/edocument-exchange/internal/domain/outbox"
	"github.com/edocument-exchange/internal/edocument_processor/service"
	"github.com/jackc/pgx/v5"
)

type EventRecorderImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewEventRecorder(outboxRepo outbox.Repository, logger *slog.Logger) service.EventRecorder {
	return &EventRecorderImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// RecordEvent writes the lifecycle event of doc in the transaction that changed it
func (r *EventRecorderImpl) RecordEvent(ctx context.Context, tx pgx.Tx, doc *edocument.EDocument) error {
	logger := r.logger
	if doc.CorrelationID != "" {
		logger = r.logger.With("correlation_id", doc.CorrelationID)
	}

	message, err := outbox.NewMessage(doc, time.Now().UTC())
	if err != nil {
		logger.Error("Failed to create new outbox message (marshal payload)", "document_id", doc.ID, "error", err)
		return fmt.Errorf("failed to create outbox message payload for document %d: %w", doc.ID, err)
	}

	if err = r.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
		logger.Error("Failed to create outbox message", "document_id", doc.ID, "state", doc.State, "error", err)
		return fmt.Errorf("failed to create outbox message for document %d: %w", doc.ID, err)
	}
	logger.Debug("Outbox message created", "document_id", doc.ID, "state", doc.State, "outbox_id", message.ID)
	return nil
}
