package service

import (
	"context"
	"time"

	"github.com/edocument-exchange/internal/domain/attachment"
	"github.com/edocument-exchange/internal/domain/company"
	"github.com/edocument-exchange/internal/domain/edocument"
	"github.com/edocument-exchange/internal/domain/flow"
	"github.com/edocument-exchange/internal/domain/note"
	"github.com/edocument-exchange/internal/domain/qris"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/edocument_processor/aggregator"
)

// RecordService defines the interface for source record operations
type RecordService interface {
	// SaveRecord stores a record handed over by the host
	// Returns record.ErrImmutable when a posted record would be overwritten
	SaveRecord(ctx context.Context, rec *record.SourceRecord) error

	// CorrectRecord replaces the content of a posted shipment or batch ahead of an amendment
	CorrectRecord(ctx context.Context, rec *record.SourceRecord) error

	// GetRecordByID returns nil if the record is not found
	GetRecordByID(ctx context.Context, id int64) (*record.SourceRecord, error)

	// GetNotes returns the newest log messages of a record first
	GetNotes(ctx context.Context, recordID int64, limit int) ([]*note.Note, error)

	// GetQRCodes returns the QR codes generated for a record
	GetQRCodes(ctx context.Context, recordID int64) ([]*qris.Transaction, error)
}

// SubmissionService defines the interface for queuing submission requests
type SubmissionService interface {
	// RequestSubmission publishes the request to the processor and returns its id
	RequestSubmission(ctx context.Context, request *shared.SubmissionRequest) (string, error)
}

// DocumentService defines the interface for document reads
type DocumentService interface {
	// GetDocumentByID returns nil if the document is not found
	GetDocumentByID(ctx context.Context, id int64) (*edocument.EDocument, error)
	GetDocumentsByRecord(ctx context.Context, recordID int64) ([]*edocument.EDocument, error)
	GetDocumentsByFlow(ctx context.Context, flowID int64) ([]*edocument.EDocument, error)
	GetAttachments(ctx context.Context, documentID int64) ([]*attachment.Attachment, error)

	// GetAttachment returns nil if the attachment is not found
	GetAttachment(ctx context.Context, id string) (*attachment.Attachment, error)
}

// FlowService defines the interface for aggregation flow operations
type FlowService interface {
	// GetFlowByID returns nil if the flow is not found
	GetFlowByID(ctx context.Context, id int64) (*flow.Flow, error)
	GetFlowsByPeriod(ctx context.Context, companyID int64, profile shared.Profile, kind flow.Kind, start, end time.Time) ([]*flow.Flow, error)

	// Synchronize regroups the company's eligible records of the period containing at
	Synchronize(ctx context.Context, companyID int64, profile shared.Profile, at time.Time) (aggregator.Result, error)
}

// CompanyService defines the interface for company settings
type CompanyService interface {
	GetSettings(ctx context.Context, companyID int64) (*company.Settings, error)
	SaveSettings(ctx context.Context, settings *company.Settings) error
}
