package edocument

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// Repository defines document persistence operations
type Repository interface {
	Create(ctx context.Context, doc *EDocument) error
	GetByID(ctx context.Context, id int64) (*EDocument, error)

	// ListByRecord returns the record's documents ordered by (created_at, id)
	ListByRecord(ctx context.Context, recordID int64) ([]*EDocument, error)
	ListByFlow(ctx context.Context, flowID int64) ([]*EDocument, error)

	// ListOutstanding returns documents waiting for an upstream verdict ordered by (created_at, id)
	ListOutstanding(ctx context.Context, limit int) ([]*EDocument, error)
	Update(ctx context.Context, doc *EDocument) error

	// DeleteSuperseded removes sent and sending-failed documents of the same owner older than keep
	DeleteSuperseded(ctx context.Context, keep *EDocument) ([]int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrDocumentNotFound indicates a missing document
type ErrDocumentNotFound struct {
	ID int64
}

func (e ErrDocumentNotFound) Error() string {
	return "document not found: " + strconv.FormatInt(e.ID, 10)
}

// ErrAlreadySent indicates an attempt to open a second in-flight submission for a record
type ErrAlreadySent struct {
	RecordID int64
}

func (e ErrAlreadySent) Error() string {
	return "record already has a sent document: " + strconv.FormatInt(e.RecordID, 10)
}
