package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edocument-exchange/internal/domain/edocument"
	"github.com/edocument-exchange/internal/domain/flow"
	"github.com/edocument-exchange/internal/domain/note"
	"github.com/edocument-exchange/internal/domain/qris"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// Dependencies groups the collaborators of the submission service.
type Dependencies struct {
	UnitOfWork persistence.UnitOfWork
	Records    record.Repository
	Flows      flow.Repository
	Documents  edocument.Repository
	QRIS       qris.Repository

	Builder    PayloadBuilder
	Dispatcher Dispatcher
	Events     EventRecorder
	Journal    Journal
	Failures   FailureRecorder
	Amender    FlowAmender
	Verdicts   VerdictApplier

	// QRISExpiry is how long an unpaid QR code stays valid.
	QRISExpiry time.Duration
}

type SubmissionServiceImpl struct {
	Dependencies
	logger *slog.Logger
	now    func() time.Time
}

func NewSubmissionService(deps Dependencies, logger *slog.Logger) SubmissionService {
	return &SubmissionServiceImpl{
		Dependencies: deps,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Submit handles one submission request. Failures the host has to act on are
// reported through the failure recorder and acknowledged; anything else is
// returned so that Kafka redelivers the request.
func (s *SubmissionServiceImpl) Submit(ctx context.Context, request *shared.SubmissionRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}
	logger = logger.With("request_id", request.RequestID.String(), "profile", request.Profile, "action", request.Action)

	logger.Info("Processing submission", "record_id", request.RecordID, "flow_id", request.FlowID)

	if err := request.Validate(); err != nil {
		logger.Error("Submission request validation failed", "error", err)
		s.recordFailure(ctx, logger, request, err.Error())
		return nil
	}

	var err error
	switch {
	case request.Action == shared.ActionQR:
		err = s.issueQR(ctx, logger, request)
	case request.FlowID != 0:
		err = s.submitFlow(ctx, logger, request)
	default:
		err = s.submitRecord(ctx, logger, request)
	}
	if err == nil {
		return nil
	}

	err = classify(err)
	if shared.KindOf(err) == "" {
		logger.Error("Failed to process submission", "error", err)
		return err
	}
	logger.Warn("Submission refused", "kind", shared.KindOf(err), "error", err)
	s.recordFailure(ctx, logger, request, shared.Message(err))
	return nil
}

func (s *SubmissionServiceImpl) recordFailure(ctx context.Context, logger *slog.Logger, request *shared.SubmissionRequest, reason string) {
	if err := s.Failures.RecordFailure(ctx, request, reason); err != nil {
		logger.Error("Failed to record submission failure", "error", err)
	}
}

// classify gives a kind to the errors that mean the request cannot succeed as sent.
func classify(err error) error {
	var (
		recordMissing record.ErrRecordNotFound
		flowMissing   flow.ErrFlowNotFound
		alreadySent   edocument.ErrAlreadySent
		frozen        flow.ErrFlowFrozen
	)
	switch {
	case errors.As(err, &recordMissing), errors.As(err, &flowMissing),
		errors.As(err, &alreadySent), errors.As(err, &frozen):
		return shared.NewError(shared.KindConfiguration, err.Error(), nil)
	}
	return err
}

func configuration(format string, args ...interface{}) error {
	return shared.NewError(shared.KindConfiguration, fmt.Sprintf(format, args...), nil)
}

// producesDocument reports whether a build error is kept on a failed document.
// Configuration errors never create one.
func producesDocument(err error) bool {
	kind := shared.KindOf(err)
	return kind == shared.KindValidation || kind == shared.KindSerialization
}

// failBuild records a build error on a document in the building state.
func failBuild(doc *edocument.EDocument, err error, now time.Time) error {
	if shared.IsKind(err, shared.KindSerialization) {
		if terr := doc.Transition(edocument.StateFailed, now); terr != nil {
			return terr
		}
		doc.Message = shared.Message(err)
		return nil
	}
	return doc.Fail(shared.Message(err), now)
}

// saveDocument stores a state change of doc together with its lifecycle event.
func (s *SubmissionServiceImpl) saveDocument(ctx context.Context, tx pgx.Tx, doc *edocument.EDocument) error {
	if err := s.Documents.WithTx(tx).Update(ctx, doc); err != nil {
		return err
	}
	return s.Events.RecordEvent(ctx, tx, doc)
}

func (s *SubmissionServiceImpl) createDocument(ctx context.Context, tx pgx.Tx, doc *edocument.EDocument) error {
	if err := s.Documents.WithTx(tx).Create(ctx, doc); err != nil {
		return err
	}
	return s.Events.RecordEvent(ctx, tx, doc)
}

func (s *SubmissionServiceImpl) submitRecord(ctx context.Context, logger *slog.Logger, request *shared.SubmissionRequest) error {
	rec, err := s.Records.GetByID(ctx, request.RecordID)
	if err != nil {
		return err
	}

	switch {
	case request.Profile.IsAggregated():
		return configuration("profile %s reports records through aggregation flows", request.Profile)
	case request.Action == shared.ActionRectify:
		return configuration("only periodic reports are rectified")
	case request.Action == shared.ActionCancel && request.Profile == shared.ProfileIDQRIS:
		return s.discardQR(ctx, logger, rec)
	case request.Action == shared.ActionCancel:
		return s.cancelRecord(ctx, logger.With("record_id", rec.ID), rec, request.Profile)
	case request.Profile == shared.ProfileIDQRIS:
		return configuration("QRIS invoices are collected through QR codes")
	case request.Action == shared.ActionAmend && request.Profile == shared.ProfileFRCIUS:
		return configuration("French invoices are corrected through the accredited platform")
	}
	return s.sendRecord(ctx, logger.With("record_id", rec.ID), rec, request)
}

// checkSendable refuses a second submission while one is in flight. A send needs
// a record without a validated document; an amendment needs one and returns the
// latest, which the new document refers to.
func checkSendable(rec *record.SourceRecord, request *shared.SubmissionRequest, docs []*edocument.EDocument) (*edocument.EDocument, error) {
	var validated *edocument.EDocument
	for _, doc := range docs {
		if doc.Profile != request.Profile {
			continue
		}
		if doc.State.IsSent() {
			return nil, edocument.ErrAlreadySent{RecordID: rec.ID}
		}
		if doc.State.IsValidated() && (validated == nil || doc.ID > validated.ID) {
			validated = doc
		}
	}
	switch {
	case request.Action == shared.ActionAmend && validated == nil:
		return nil, configuration("record %s has no validated submission to amend", rec.Name)
	case request.Action != shared.ActionAmend && validated != nil:
		return nil, configuration("record %s is already validated", rec.Name)
	}
	return validated, nil
}

// cancelRecord stops verdicts from reaching a record whose submission is still
// with the authority. The document is kept; the reconciler lifts the block when
// the verdict arrives.
func (s *SubmissionServiceImpl) cancelRecord(ctx context.Context, logger *slog.Logger, rec *record.SourceRecord, profile shared.Profile) error {
	var sent *edocument.EDocument
	err := s.UnitOfWork.ExecuteTx(ctx, func(tx pgx.Tx) error {
		records := s.Records.WithTx(tx)
		if _, err := records.LockForUpdate(ctx, rec.ID); err != nil {
			return err
		}
		docs, err := s.Documents.WithTx(tx).ListByRecord(ctx, rec.ID)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if doc.Profile == profile && doc.State.IsSent() {
				sent = doc
				break
			}
		}
		if sent == nil {
			return configuration("record %s has no submission in progress; submitted invoices are cancelled with a credit note", rec.Name)
		}
		return records.SetPollBlocked(ctx, rec.ID, true)
	})
	if err != nil {
		return err
	}

	logger.Info("Record blocked from status updates", "document_id", sent.ID, "load_id", sent.LoadID)
	s.Journal.Note(ctx, []int64{rec.ID}, sent.ID, note.LevelWarning,
		fmt.Sprintf("Cancelled while load %s is processed; the verdict will be kept on the document only", sent.LoadID))
	return nil
}

func (s *SubmissionServiceImpl) sendRecord(ctx context.Context, logger *slog.Logger, rec *record.SourceRecord, request *shared.SubmissionRequest) error {
	docs, err := s.Documents.ListByRecord(ctx, rec.ID)
	if err != nil {
		return err
	}
	if _, err := checkSendable(rec, request, docs); err != nil {
		return err
	}

	// Rendering is pure and stays outside the transaction.
	payload, buildErr := s.Builder.ForRecord(ctx, rec, request.Profile)
	if buildErr != nil && !producesDocument(buildErr) {
		return buildErr
	}

	now := s.now()
	doc := edocument.NewForRecord(rec.ID, rec.CompanyID, request.Profile, request.CorrelationID, now)
	err = s.UnitOfWork.ExecuteTx(ctx, func(tx pgx.Tx) error {
		records := s.Records.WithTx(tx)
		if _, err := records.LockForUpdate(ctx, rec.ID); err != nil {
			return err
		}
		docs, err := s.Documents.WithTx(tx).ListByRecord(ctx, rec.ID)
		if err != nil {
			return err
		}
		prior, err := checkSendable(rec, request, docs)
		if err != nil {
			return err
		}
		if prior != nil {
			doc.StartAmendment(prior)
		}

		if err := doc.Transition(edocument.StateBuilding, now); err != nil {
			return err
		}
		if buildErr != nil {
			if err := failBuild(doc, buildErr, now); err != nil {
				return err
			}
		}
		if err := s.createDocument(ctx, tx, doc); err != nil {
			return err
		}
		return records.AppendDocument(ctx, rec.ID, doc.ID)
	})
	if err != nil {
		return err
	}

	logger = logger.With("document_id", doc.ID)
	if buildErr != nil {
		logger.Warn("Document build failed", "state", doc.State, "error", buildErr)
		s.Journal.Note(ctx, []int64{rec.ID}, doc.ID, note.LevelError, doc.Message)
		return nil
	}
	return s.deliverRecord(ctx, logger, rec, doc, payload)
}

func (s *SubmissionServiceImpl) deliverRecord(ctx context.Context, logger *slog.Logger, rec *record.SourceRecord, doc *edocument.EDocument, payload *Payload) error {
	attachmentID, err := s.Journal.Attach(ctx, doc.ID, payload)
	if err != nil {
		return fmt.Errorf("failed to store payload of document %d: %w", doc.ID, err)
	}

	err = s.UnitOfWork.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.Records.WithTx(tx).LockForUpdate(ctx, rec.ID); err != nil {
			return err
		}
		doc.AttachmentID = attachmentID
		if err := doc.Transition(edocument.StateReady, s.now()); err != nil {
			return err
		}
		return s.saveDocument(ctx, tx, doc)
	})
	if err != nil {
		return err
	}

	// French invoices are handed to the accredited platform by the host.
	if doc.Profile == shared.ProfileFRCIUS {
		logger.Info("Document ready", "attachment_id", attachmentID)
		s.Journal.Note(ctx, []int64{rec.ID}, doc.ID, note.LevelInfo, "Document ready for the accredited platform")
		return nil
	}

	upload, uploadErr := s.Dispatcher.Upload(ctx, doc, payload)

	var superseded []int64
	err = s.UnitOfWork.ExecuteTx(ctx, func(tx pgx.Tx) error {
		records := s.Records.WithTx(tx)
		if _, err := records.LockForUpdate(ctx, rec.ID); err != nil {
			return err
		}
		now := s.now()
		if uploadErr != nil {
			if err := doc.Fail(shared.Message(uploadErr), now); err != nil {
				return err
			}
			return s.saveDocument(ctx, tx, doc)
		}

		if err := doc.MarkSent(upload.LoadID, upload.UIT, now); err != nil {
			return err
		}
		if err := s.saveDocument(ctx, tx, doc); err != nil {
			return err
		}
		if err := records.UpdateEDIState(ctx, rec.ID, record.EDIStateSent); err != nil {
			return err
		}
		var err error
		superseded, err = s.Documents.WithTx(tx).DeleteSuperseded(ctx, doc)
		if err != nil {
			return err
		}
		if len(superseded) == 0 {
			return nil
		}
		return records.RemoveDocuments(ctx, rec.ID, superseded)
	})
	if err != nil {
		return err
	}

	if uploadErr != nil {
		logger.Warn("Upload failed", "kind", shared.KindOf(uploadErr), "error", uploadErr)
		s.Journal.Note(ctx, []int64{rec.ID}, doc.ID, note.LevelError, "Submission failed: "+doc.Message)
		return nil
	}

	logger.Info("Document sent", "load_id", doc.LoadID)
	s.Journal.Purge(ctx, superseded)
	s.Journal.Note(ctx, []int64{rec.ID}, doc.ID, note.LevelInfo, fmt.Sprintf("Submission sent (load %s)", doc.LoadID))

	if upload.Verdict != nil {
		if err := s.Verdicts.Apply(ctx, doc.ID, *upload.Verdict); err != nil {
			// The document stays sent and the poller reports it.
			logger.Error("Failed to apply synchronous verdict", "error", err)
		}
	}
	return nil
}

func (s *SubmissionServiceImpl) issueQR(ctx context.Context, logger *slog.Logger, request *shared.SubmissionRequest) error {
	if request.Profile != shared.ProfileIDQRIS {
		return configuration("QR codes are issued for %s only", shared.ProfileIDQRIS)
	}
	if request.RecordID == 0 {
		return configuration("QR codes are issued for records")
	}
	rec, err := s.Records.GetByID(ctx, request.RecordID)
	if err != nil {
		return err
	}
	logger = logger.With("record_id", rec.ID)

	amount, err := s.Builder.QRAmount(ctx, rec)
	if err != nil {
		return err
	}

	existing, err := s.QRIS.ListByRecord(ctx, rec.ID)
	if err != nil {
		return err
	}
	now := s.now()
	for _, txn := range existing {
		if txn.Paid {
			return configuration("record %s is already paid", rec.Name)
		}
		if !txn.Expired(now, s.QRISExpiry) {
			logger.Info("Unpaid QR code still valid", "invoice_id", txn.InvoiceID)
			return nil
		}
	}

	txn, err := s.Dispatcher.CreateQR(ctx, rec, amount)
	if err != nil {
		return err
	}
	if err := s.QRIS.Create(ctx, txn); err != nil {
		logger.Error("Failed to store QR code", "invoice_id", txn.InvoiceID, "error", err)
		return fmt.Errorf("failed to store QR %s: %w", txn.InvoiceID, err)
	}

	logger.Info("QR code issued", "invoice_id", txn.InvoiceID)
	s.Journal.Note(ctx, []int64{rec.ID}, 0, note.LevelInfo,
		fmt.Sprintf("QR code %s issued for %s %s", txn.InvoiceID, txn.Amount.StringFixed(0), rec.Currency))
	return nil
}

// discardQR drops the unpaid QR codes of a record.
func (s *SubmissionServiceImpl) discardQR(ctx context.Context, logger *slog.Logger, rec *record.SourceRecord) error {
	existing, err := s.QRIS.ListByRecord(ctx, rec.ID)
	if err != nil {
		return err
	}
	for _, txn := range existing {
		if txn.Paid {
			continue
		}
		if err := s.Verdicts.DiscardQR(ctx, txn, "cancelled before payment"); err != nil {
			return err
		}
		logger.Info("QR code discarded", "record_id", rec.ID, "invoice_id", txn.InvoiceID)
	}
	return nil
}
