package components

import (
	"context"
	"log/slog"

	"github.com/edocument-exchange/internal/domain/flow"
	"github.com/edocument-exchange/internal/domain/note"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/edocument_processor/service"
)

type FailureRecorderImpl struct {
	flows   flow.Repository
	journal service.Journal
	logger  *slog.Logger
}

func NewFailureRecorder(flows flow.Repository, journal service.Journal, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		flows:   flows,
		journal: journal,
		logger:  logger,
	}
}

// RecordFailure posts the reason a request was refused on the records it named.
// Requests naming a flow notify every record of the flow.
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, request *shared.SubmissionRequest, reason string) error {
	logger := r.logger
	if request.CorrelationID != "" {
		logger = r.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Recording failed submission", "request_id", request.RequestID.String(), "reason", reason)

	var recordIDs []int64
	switch {
	case request.RecordID != 0:
		recordIDs = []int64{request.RecordID}
	case request.FlowID != 0:
		f, err := r.flows.GetByID(ctx, request.FlowID)
		if err != nil {
			logger.Error("Failed to get flow of failed submission", "flow_id", request.FlowID, "error", err)
			return err
		}
		recordIDs = f.RecordIDs
	}
	if len(recordIDs) == 0 {
		logger.Warn("Failed submission names no record", "request_id", request.RequestID.String())
		return nil
	}

	r.journal.Note(ctx, recordIDs, 0, note.LevelError, string(request.Action)+" refused: "+reason)
	return nil
}
