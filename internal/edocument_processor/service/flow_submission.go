package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edocument-exchange/internal/domain/edocument"
	"github.com/edocument-exchange/internal/domain/flow"
	"github.com/edocument-exchange/internal/domain/note"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/jackc/pgx/v5"
)

func (s *SubmissionServiceImpl) submitFlow(ctx context.Context, logger *slog.Logger, request *shared.SubmissionRequest) error {
	logger = logger.With("flow_id", request.FlowID)

	switch request.Action {
	case shared.ActionAmend:
		amendments, err := s.Amender.Amend(ctx, request.FlowID)
		if err != nil {
			return err
		}
		for _, f := range amendments {
			if err := s.sendFlow(ctx, logger.With("amendment_id", f.ID), f.ID, request); err != nil {
				return err
			}
		}
		return nil
	case shared.ActionRectify:
		rectification, err := s.Amender.Rectify(ctx, request.FlowID)
		if err != nil {
			return err
		}
		return s.sendFlow(ctx, logger.With("rectification_id", rectification.ID), rectification.ID, request)
	case shared.ActionCancel:
		return s.cancelFlow(ctx, logger, request)
	}
	return s.sendFlow(ctx, logger, request.FlowID, request)
}

func (s *SubmissionServiceImpl) sendFlow(ctx context.Context, logger *slog.Logger, flowID int64, request *shared.SubmissionRequest) error {
	f, err := s.Flows.GetByID(ctx, flowID)
	if err != nil {
		return err
	}
	switch {
	case f.Profile != request.Profile:
		return configuration("flow %d reports %s, not %s", f.ID, f.Profile, request.Profile)
	case !f.State.IsOpen():
		return configuration("flow %d is %s", f.ID, f.State)
	case len(f.RecordIDs) == 0:
		return configuration("flow %d has no records", f.ID)
	}

	recs := make([]*record.SourceRecord, 0, len(f.RecordIDs))
	for _, id := range f.RecordIDs {
		rec, err := s.Records.GetByID(ctx, id)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
	}

	payload, buildErr := s.Builder.ForFlow(ctx, f, recs)
	if buildErr != nil && !producesDocument(buildErr) {
		return buildErr
	}

	now := s.now()
	doc := edocument.NewForFlow(f.ID, f.CompanyID, f.Profile, request.CorrelationID, now)
	doc.TransmissionType = f.TransmissionType
	doc.IsCorrection = f.IsCorrection
	doc.Reference = f.Reference

	err = s.UnitOfWork.ExecuteTx(ctx, func(tx pgx.Tx) error {
		flows := s.Flows.WithTx(tx)
		locked, err := flows.LockForUpdate(ctx, f.ID)
		if err != nil {
			return err
		}
		if !locked.State.IsOpen() {
			return configuration("flow %d is %s", f.ID, locked.State)
		}
		f = locked

		if err := doc.Transition(edocument.StateBuilding, now); err != nil {
			return err
		}
		f.State = flow.StateBuilding
		f.Message = ""
		if buildErr != nil {
			if err := failBuild(doc, buildErr, now); err != nil {
				return err
			}
			f.State = flow.StateError
			f.Message = doc.Message
		}
		f.UpdatedAt = now
		if err := s.createDocument(ctx, tx, doc); err != nil {
			return err
		}
		return flows.Update(ctx, f)
	})
	if err != nil {
		return err
	}

	logger = logger.With("document_id", doc.ID)
	if buildErr != nil {
		logger.Warn("Flow build failed", "state", doc.State, "error", buildErr)
		s.Journal.Note(ctx, f.RecordIDs, doc.ID, note.LevelError, fmt.Sprintf("Flow %d failed: %s", f.ID, doc.Message))
		return nil
	}
	return s.deliverFlow(ctx, logger, f, doc, payload)
}

func (s *SubmissionServiceImpl) deliverFlow(ctx context.Context, logger *slog.Logger, f *flow.Flow, doc *edocument.EDocument, payload *Payload) error {
	attachmentID, err := s.Journal.Attach(ctx, doc.ID, payload)
	if err != nil {
		return fmt.Errorf("failed to store payload of document %d: %w", doc.ID, err)
	}

	err = s.UnitOfWork.ExecuteTx(ctx, func(tx pgx.Tx) error {
		flows := s.Flows.WithTx(tx)
		if _, err := flows.LockForUpdate(ctx, f.ID); err != nil {
			return err
		}
		now := s.now()
		doc.AttachmentID = attachmentID
		if err := doc.Transition(edocument.StateReady, now); err != nil {
			return err
		}
		if err := s.saveDocument(ctx, tx, doc); err != nil {
			return err
		}
		f.State = flow.StateReady
		f.UpdatedAt = now
		return flows.Update(ctx, f)
	})
	if err != nil {
		return err
	}

	// The annual report is lodged by the payer through the ATO portal.
	if f.Profile == shared.ProfileAUTPAR {
		logger.Info("Flow ready", "attachment_id", attachmentID)
		s.Journal.Note(ctx, f.RecordIDs, doc.ID, note.LevelInfo, fmt.Sprintf("Report of flow %d ready for lodgement", f.ID))
		return nil
	}

	upload, uploadErr := s.Dispatcher.Upload(ctx, doc, payload)

	var superseded []int64
	err = s.UnitOfWork.ExecuteTx(ctx, func(tx pgx.Tx) error {
		flows := s.Flows.WithTx(tx)
		records := s.Records.WithTx(tx)
		if _, err := flows.LockForUpdate(ctx, f.ID); err != nil {
			return err
		}
		now := s.now()
		f.UpdatedAt = now

		if uploadErr != nil {
			if err := doc.Fail(shared.Message(uploadErr), now); err != nil {
				return err
			}
			if err := s.saveDocument(ctx, tx, doc); err != nil {
				return err
			}
			f.State = flow.StateError
			f.Message = doc.Message
			return flows.Update(ctx, f)
		}

		uit := upload.UIT
		if f.IsCorrection && f.Profile.IsStock() {
			// corrections keep the UIT of the declaration they amend
			uit = f.Reference
		}
		if err := doc.MarkSent(upload.LoadID, uit, now); err != nil {
			return err
		}
		if err := s.saveDocument(ctx, tx, doc); err != nil {
			return err
		}
		f.State = flow.StateSent
		f.LoadID = doc.LoadID
		f.UIT = doc.UIT
		f.Message = ""
		if err := flows.Update(ctx, f); err != nil {
			return err
		}

		for _, id := range f.RecordIDs {
			if err := records.UpdateEDIState(ctx, id, record.EDIStateSent); err != nil {
				return err
			}
			if f.Profile.IsStock() {
				if err := records.AppendDocument(ctx, id, doc.ID); err != nil {
					return err
				}
			}
		}

		superseded, err = s.Documents.WithTx(tx).DeleteSuperseded(ctx, doc)
		if err != nil || len(superseded) == 0 || !f.Profile.IsStock() {
			return err
		}
		for _, id := range f.RecordIDs {
			if err := records.RemoveDocuments(ctx, id, superseded); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if uploadErr != nil {
		logger.Warn("Flow upload failed", "kind", shared.KindOf(uploadErr), "error", uploadErr)
		s.Journal.Note(ctx, f.RecordIDs, doc.ID, note.LevelError, fmt.Sprintf("Flow %d failed: %s", f.ID, doc.Message))
		return nil
	}

	logger.Info("Flow sent", "load_id", doc.LoadID, "uit", doc.UIT)
	s.Journal.Purge(ctx, superseded)
	s.Journal.Note(ctx, f.RecordIDs, doc.ID, note.LevelInfo, fmt.Sprintf("Flow %d sent (load %s)", f.ID, doc.LoadID))

	if upload.Verdict != nil {
		if err := s.Verdicts.Apply(ctx, doc.ID, *upload.Verdict); err != nil {
			logger.Error("Failed to apply synchronous verdict", "error", err)
		}
	}
	return nil
}

// cancelFlow drops an open flow with its documents. Sent flows are corrected
// instead.
func (s *SubmissionServiceImpl) cancelFlow(ctx context.Context, logger *slog.Logger, request *shared.SubmissionRequest) error {
	var documentIDs []int64
	err := s.UnitOfWork.ExecuteTx(ctx, func(tx pgx.Tx) error {
		flows := s.Flows.WithTx(tx)
		f, err := flows.LockForUpdate(ctx, request.FlowID)
		if err != nil {
			return err
		}
		if f.Profile != request.Profile {
			return configuration("flow %d reports %s, not %s", f.ID, f.Profile, request.Profile)
		}
		if !f.State.IsOpen() {
			return configuration("flow %d was sent; amend it instead", f.ID)
		}

		docs, err := s.Documents.WithTx(tx).ListByFlow(ctx, f.ID)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			documentIDs = append(documentIDs, doc.ID)
		}

		if f.State != flow.StateDraft {
			f.SetRecords(nil)
			f.State = flow.StateDraft
			f.Message = ""
			f.UpdatedAt = s.now()
			if err := flows.Update(ctx, f); err != nil {
				return err
			}
		}
		return flows.Delete(ctx, f.ID)
	})
	if err != nil {
		return err
	}

	s.Journal.Purge(ctx, documentIDs)
	logger.Info("Flow cancelled", "documents", len(documentIDs))
	return nil
}
