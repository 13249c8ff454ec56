package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/edocument_processor/service"
	"github.com/edocument-exchange/internal/logger"
	"github.com/edocument-exchange/internal/platform/messaging/producers"
)

// SubmissionHandler turns request topic messages into submissions.
type SubmissionHandler struct {
	submissionService service.SubmissionService
	deadLetters       producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewSubmissionHandler accepts a nil deadLetters; unreadable messages are then
// logged and dropped.
func NewSubmissionHandler(
	logger *slog.Logger,
	submissionService service.SubmissionService,
	deadLetters producers.DeadLetterPublisher,
) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		deadLetters:       deadLetters,
		logger:            logger,
	}
}

// HandleMessage returns an error only for failures worth retrying: the consumer
// replays the same message until it gets nil.
func (h *SubmissionHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.SubmissionRequest
	if err := json.Unmarshal(value, &request); err != nil {
		return h.park(ctx, string(key), value, fmt.Sprintf("undecodable submission request: %v", err))
	}

	if logger.CorrelationID(ctx) == "" {
		ctx = logger.WithCorrelationID(ctx, request.CorrelationID)
	}
	log := logger.FromContext(ctx, h.logger).With("request_id", request.RequestID.String())
	log.Info("Received submission request",
		"profile", request.Profile,
		"action", request.Action,
		"record_id", request.RecordID,
		"flow_id", request.FlowID,
	)

	if err := h.submissionService.Submit(ctx, &request); err != nil {
		return fmt.Errorf("submission %s failed: %w", request.RequestID, err)
	}
	log.Info("Processed submission request")
	return nil
}

// park moves a message that can never be processed out of the way.
func (h *SubmissionHandler) park(ctx context.Context, key string, value []byte, reason string) error {
	log := logger.FromContext(ctx, h.logger).With("message_key", key)
	if h.deadLetters == nil {
		log.Error("Dropping unprocessable message, no dead letter topic", "reason", reason)
		return nil
	}
	if err := h.deadLetters.PublishToDLQ(ctx, key, value, reason); err != nil {
		return fmt.Errorf("failed to park message %s: %w", key, err)
	}
	log.Warn("Parked unprocessable message on the dead letter topic", "reason", reason)
	return nil
}
