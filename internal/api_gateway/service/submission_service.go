package service

import (
	"context"
	"log/slog"

	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/platform/messaging/producers"
)

// SubmissionServiceImpl implements the SubmissionService interface
type SubmissionServiceImpl struct {
	producer producers.MessagePublisher
	logger   *slog.Logger
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(logger *slog.Logger, producer producers.MessagePublisher) SubmissionService {
	return &SubmissionServiceImpl{
		producer: producer,
		logger:   logger,
	}
}

// RequestSubmission validates the request and publishes it keyed by its record or flow,
// so that requests about the same owner are processed in order.
func (s *SubmissionServiceImpl) RequestSubmission(ctx context.Context, request *shared.SubmissionRequest) (string, error) {
	if err := request.Validate(); err != nil {
		return "", err
	}

	if err := s.producer.Publish(ctx, request.Key(), request); err != nil {
		s.logger.Error("Failed to publish submission request",
			"record_id", request.RecordID,
			"flow_id", request.FlowID,
			"profile", string(request.Profile),
			"action", string(request.Action),
			"error", err,
		)
		return "", err
	}

	s.logger.Info("Submission request published",
		"request_id", request.RequestID,
		"record_id", request.RecordID,
		"flow_id", request.FlowID,
		"profile", string(request.Profile),
		"action", string(request.Action),
	)

	return request.RequestID.String(), nil
}
