package service

import (
	"context"

	"github.com/edocument-exchange/internal/domain/edocument"
	"github.com/edocument-exchange/internal/domain/flow"
	"github.com/edocument-exchange/internal/domain/note"
	"github.com/edocument-exchange/internal/domain/qris"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/edocument_processor/reconciler"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// SubmissionService defines the interface for processing submission requests.
type SubmissionService interface {
	Submit(ctx context.Context, request *shared.SubmissionRequest) error
}

// Payload is a rendered file ready for upload.
type Payload struct {
	Content  []byte
	Name     string
	MimeType string
	// VAT is the declarant code the endpoint files the payload under.
	VAT        string
	CreditNote bool
	// Preview is an optional human readable rendition kept next to the payload.
	Preview     []byte
	PreviewName string
}

// Upload is what an accepted upload returned.
type Upload struct {
	LoadID string
	UIT    string
	// Verdict is set by endpoints that answer synchronously.
	Verdict *reconciler.Verdict
}

// PayloadBuilder extracts, validates and renders what a profile uploads
type PayloadBuilder interface {
	ForRecord(ctx context.Context, rec *record.SourceRecord, profile shared.Profile) (*Payload, error)
	ForFlow(ctx context.Context, f *flow.Flow, recs []*record.SourceRecord) (*Payload, error)
	// QRAmount validates a QRIS record and returns the amount its QR code collects
	QRAmount(ctx context.Context, rec *record.SourceRecord) (decimal.Decimal, error)
}

// Dispatcher talks to the government endpoint of a profile
type Dispatcher interface {
	Upload(ctx context.Context, doc *edocument.EDocument, payload *Payload) (*Upload, error)
	CreateQR(ctx context.Context, rec *record.SourceRecord, amount decimal.Decimal) (*qris.Transaction, error)
}

// EventRecorder writes the lifecycle event of a document state change
type EventRecorder interface {
	RecordEvent(ctx context.Context, tx pgx.Tx, doc *edocument.EDocument) error
}

// Journal keeps the attachments and record notes that live outside PostgreSQL
type Journal interface {
	Attach(ctx context.Context, documentID int64, payload *Payload) (attachmentID string, err error)
	Purge(ctx context.Context, documentIDs []int64)
	Note(ctx context.Context, recordIDs []int64, documentID int64, level note.Level, body string)
}

// FailureRecorder reports requests that could not be acted on
type FailureRecorder interface {
	RecordFailure(ctx context.Context, request *shared.SubmissionRequest, reason string) error
}

// FlowAmender prepares the flows correcting or replacing a sent flow
type FlowAmender interface {
	Amend(ctx context.Context, flowID int64) ([]*flow.Flow, error)
	Rectify(ctx context.Context, flowID int64) (*flow.Flow, error)
}

// VerdictApplier settles documents that received a verdict
type VerdictApplier interface {
	Apply(ctx context.Context, documentID int64, v reconciler.Verdict) error
	DiscardQR(ctx context.Context, txn *qris.Transaction, reason string) error
}
