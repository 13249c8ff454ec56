// Package reconciler applies upstream verdicts to documents and to the records or
// flows that own them.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edocument-exchange/internal/domain/attachment"
	"github.com/edocument-exchange/internal/domain/edocument"
	"github.com/edocument-exchange/internal/domain/flow"
	"github.com/edocument-exchange/internal/domain/note"
	"github.com/edocument-exchange/internal/domain/outbox"
	"github.com/edocument-exchange/internal/domain/qris"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

type Outcome string

const (
	OutcomeValidated Outcome = "validated"
	OutcomeRejected  Outcome = "rejected"
	// OutcomePending keeps the document sent; a message replaces the stored diagnostic.
	OutcomePending Outcome = "pending"
	// OutcomeUnknown is an upstream state the exchange does not understand.
	OutcomeUnknown Outcome = "unknown"
)

// Receipt is the verdict file kept next to the document.
type Receipt struct {
	Name     string
	MimeType string
	Content  []byte
}

// Verdict is what the upstream said about a sent document.
type Verdict struct {
	Outcome Outcome
	// State is the raw upstream state, reported for unknown outcomes.
	State   string
	Message string
	Receipt *Receipt
}

type Reconciler struct {
	logger      *slog.Logger
	uow         persistence.UnitOfWork
	documents   edocument.Repository
	records     record.Repository
	flows       flow.Repository
	qris        qris.Repository
	outbox      outbox.Repository
	notes       note.Repository
	attachments attachment.Repository
	now         func() time.Time
}

func NewReconciler(
	logger *slog.Logger,
	uow persistence.UnitOfWork,
	documents edocument.Repository,
	records record.Repository,
	flows flow.Repository,
	qrisRepo qris.Repository,
	outboxRepo outbox.Repository,
	notes note.Repository,
	attachments attachment.Repository,
) *Reconciler {
	return &Reconciler{
		logger:      logger,
		uow:         uow,
		documents:   documents,
		records:     records,
		flows:       flows,
		qris:        qrisRepo,
		outbox:      outboxRepo,
		notes:       notes,
		attachments: attachments,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Apply settles a sent document. The owner row is locked first so that a verdict
// never races a new submission of the same record or flow; a document that left
// the sent state meanwhile is left alone.
func (r *Reconciler) Apply(ctx context.Context, documentID int64, v Verdict) error {
	log := r.logger.With("document_id", documentID, "outcome", v.Outcome)

	doc, err := r.documents.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if v.Outcome == OutcomeUnknown {
		log.Warn("Unhandled upstream state", "state", v.State)
		r.post(ctx, r.notesFor(ctx, doc, note.LevelWarning, "unhandled state: "+v.State))
		return nil
	}

	// The receipt is stored before the state change so that a settled document
	// never points at a missing attachment.
	receiptID := ""
	if v.Receipt != nil && v.Outcome != OutcomePending {
		receipt := &attachment.Attachment{
			DocumentID: doc.ID,
			Kind:       attachment.KindReceipt,
			Name:       v.Receipt.Name,
			MimeType:   v.Receipt.MimeType,
			Content:    v.Receipt.Content,
			CreatedAt:  r.now(),
		}
		if err := r.attachments.Save(ctx, receipt); err != nil {
			log.Error("Failed to save receipt", "error", err)
			return fmt.Errorf("failed to save receipt of document %d: %w", doc.ID, err)
		}
		receiptID = receipt.ID
	}

	var notes []*note.Note
	err = r.uow.ExecuteTx(ctx, func(tx pgx.Tx) error {
		documents := r.documents.WithTx(tx)
		records := r.records.WithTx(tx)
		flows := r.flows.WithTx(tx)

		var (
			rec *record.SourceRecord
			f   *flow.Flow
			err error
		)
		if doc.RecordID != nil {
			rec, err = records.LockForUpdate(ctx, *doc.RecordID)
		} else {
			f, err = flows.LockForUpdate(ctx, *doc.FlowID)
		}
		if err != nil {
			return err
		}

		current, err := documents.GetByID(ctx, doc.ID)
		if err != nil {
			return err
		}
		if !current.State.IsSent() {
			log.Info("Document already settled", "state", current.State)
			return nil
		}

		now := r.now()
		switch v.Outcome {
		case OutcomePending:
			if v.Message == "" || v.Message == current.Message {
				return nil
			}
			current.Message = v.Message
			current.UpdatedAt = now
			return documents.Update(ctx, current)
		case OutcomeValidated:
			err = current.Validate(now)
		case OutcomeRejected:
			err = current.Fail(v.Message, now)
		default:
			err = fmt.Errorf("unknown verdict outcome %q", v.Outcome)
		}
		if err != nil {
			return err
		}
		if receiptID != "" {
			current.ReceiptID = receiptID
		}
		if err := documents.Update(ctx, current); err != nil {
			return err
		}

		message, err := outbox.NewMessage(current, now)
		if err != nil {
			return fmt.Errorf("failed to create outbox message payload: %w", err)
		}
		if err := r.outbox.WithTx(tx).Create(ctx, message); err != nil {
			return err
		}

		if rec != nil {
			notes, err = settleRecord(ctx, records, rec, current, v)
		} else {
			notes, err = settleFlow(ctx, records, flows, f, current, v, now)
		}
		return err
	})
	if err != nil {
		log.Error("Failed to apply verdict", "error", err)
		return fmt.Errorf("failed to apply verdict to document %d: %w", documentID, err)
	}

	log.Info("Verdict applied")
	r.post(ctx, notes)
	return nil
}

func settleRecord(ctx context.Context, records record.Repository, rec *record.SourceRecord, doc *edocument.EDocument, v Verdict) ([]*note.Note, error) {
	// The verdict answers the cancelled submission; later ones reach the record again.
	if rec.PollBlocked {
		if err := records.SetPollBlocked(ctx, rec.ID, false); err != nil {
			return nil, err
		}
		return []*note.Note{newNote(rec.ID, doc.ID, note.LevelWarning,
			fmt.Sprintf("%s verdict kept on the document only: the record is blocked from status updates", v.Outcome))}, nil
	}
	if v.Outcome == OutcomeRejected {
		return []*note.Note{newNote(rec.ID, doc.ID, note.LevelError, "Submission rejected: "+v.Message)}, nil
	}

	var err error
	if doc.Profile.IsStock() {
		err = records.MarkDoneAndLock(ctx, rec.ID)
	} else {
		err = records.UpdateEDIState(ctx, rec.ID, record.EDIStateValidated)
	}
	if err != nil {
		return nil, err
	}
	return []*note.Note{newNote(rec.ID, doc.ID, note.LevelInfo, validatedBody(doc))}, nil
}

func settleFlow(ctx context.Context, records record.Repository, flows flow.Repository, f *flow.Flow, doc *edocument.EDocument, v Verdict, now time.Time) ([]*note.Note, error) {
	level, body := note.LevelInfo, validatedBody(doc)
	if v.Outcome == OutcomeRejected {
		f.State = flow.StateError
		f.Message = v.Message
		level, body = note.LevelError, fmt.Sprintf("Flow %d rejected: %s", f.ID, v.Message)
	} else {
		f.State = flow.StateValidated
		f.Message = ""
	}
	f.UpdatedAt = now
	if err := flows.Update(ctx, f); err != nil {
		return nil, err
	}

	notes := make([]*note.Note, 0, len(f.RecordIDs))
	for _, id := range f.RecordIDs {
		if v.Outcome == OutcomeValidated {
			var err error
			if doc.Profile.IsStock() {
				err = records.MarkDoneAndLock(ctx, id)
			} else {
				err = records.UpdateEDIState(ctx, id, record.EDIStateValidated)
			}
			if err != nil {
				return nil, err
			}
		}
		notes = append(notes, newNote(id, doc.ID, level, body))
	}
	return notes, nil
}

func validatedBody(doc *edocument.EDocument) string {
	if doc.UIT != "" {
		return fmt.Sprintf("Submission validated (load %s, UIT %s)", doc.LoadID, doc.UIT)
	}
	return fmt.Sprintf("Submission validated (load %s)", doc.LoadID)
}

// ApplyPayment registers a paid QR code on its record.
func (r *Reconciler) ApplyPayment(ctx context.Context, txn *qris.Transaction, paidBy string) error {
	now := r.now()
	err := r.uow.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := r.qris.WithTx(tx).MarkPaid(ctx, txn.ID, paidBy, now); err != nil {
			return err
		}
		return r.records.WithTx(tx).RegisterPayment(ctx, txn.RecordID, txn.InvoiceID)
	})
	if err != nil {
		r.logger.Error("Failed to register QR payment", "qris_id", txn.ID, "record_id", txn.RecordID, "error", err)
		return fmt.Errorf("failed to register payment of QR %s: %w", txn.InvoiceID, err)
	}

	body := "QRIS payment received"
	if paidBy != "" {
		body += " from " + paidBy
	}
	r.post(ctx, []*note.Note{newNote(txn.RecordID, 0, note.LevelInfo, body)})
	return nil
}

// DiscardQR drops an unpaid QR code. Reason completes the note posted on the record.
func (r *Reconciler) DiscardQR(ctx context.Context, txn *qris.Transaction, reason string) error {
	if err := r.qris.Delete(ctx, txn.ID); err != nil {
		r.logger.Error("Failed to discard QR code", "qris_id", txn.ID, "error", err)
		return fmt.Errorf("failed to discard QR %s: %w", txn.InvoiceID, err)
	}
	r.post(ctx, []*note.Note{newNote(txn.RecordID, 0, note.LevelWarning,
		fmt.Sprintf("QR code %s %s", txn.InvoiceID, reason))})
	return nil
}

func newNote(recordID, documentID int64, level note.Level, body string) *note.Note {
	return &note.Note{RecordID: recordID, DocumentID: documentID, Level: level, Body: body, CreatedAt: time.Now().UTC()}
}

// notesFor addresses a note to every record behind doc.
func (r *Reconciler) notesFor(ctx context.Context, doc *edocument.EDocument, level note.Level, body string) []*note.Note {
	if doc.RecordID != nil {
		return []*note.Note{newNote(*doc.RecordID, doc.ID, level, body)}
	}
	f, err := r.flows.GetByID(ctx, *doc.FlowID)
	if err != nil {
		r.logger.Error("Failed to get flow for notes", "flow_id", *doc.FlowID, "error", err)
		return nil
	}
	notes := make([]*note.Note, 0, len(f.RecordIDs))
	for _, id := range f.RecordIDs {
		notes = append(notes, newNote(id, doc.ID, level, body))
	}
	return notes
}

// post stores notes after the state change committed. Lost notes are logged.
func (r *Reconciler) post(ctx context.Context, notes []*note.Note) {
	for _, n := range notes {
		if err := r.notes.Add(ctx, n); err != nil {
			r.logger.Error("Failed to post note", "record_id", n.RecordID, "error", err)
		}
	}
}
