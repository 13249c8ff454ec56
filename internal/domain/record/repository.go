package record

import (
	"context"
	"strconv"
	"time"

	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/jackc/pgx/v5"
)

// Repository defines the record read model operations the exchange needs.
type Repository interface {
	// Upsert stores a record handed over by the host. Only drafts may be overwritten.
	Upsert(ctx context.Context, rec *SourceRecord) error
	GetByID(ctx context.Context, id int64) (*SourceRecord, error)

	// Correct replaces the content of a posted shipment or batch ahead of an amendment
	Correct(ctx context.Context, rec *SourceRecord) error

	// LockForUpdate acquires a row lock serializing document transitions of the record
	LockForUpdate(ctx context.Context, id int64) (*SourceRecord, error)
	UpdateEDIState(ctx context.Context, id int64, state EDIState) error
	SetPollBlocked(ctx context.Context, id int64, blocked bool) error
	MarkDoneAndLock(ctx context.Context, id int64) error
	AppendDocument(ctx context.Context, id int64, documentID int64) error
	RemoveDocuments(ctx context.Context, id int64, documentIDs []int64) error
	RegisterPayment(ctx context.Context, id int64, reference string) error

	// ListEligible returns reportable records of a company issued in [from, to] for an aggregated profile
	ListEligible(ctx context.Context, companyID int64, profile shared.Profile, from, to time.Time) ([]*SourceRecord, error)
	// ListPaid returns reportable records of a company with a payment dated in [from, to]
	ListPaid(ctx context.Context, companyID int64, profile shared.Profile, from, to time.Time) ([]*SourceRecord, error)
	ListCompanies(ctx context.Context) ([]int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ReportedTypes lists the record types each aggregated profile reports.
var ReportedTypes = map[shared.Profile][]Type{
	shared.ProfileROETransport: {TypeShipment, TypeBatch},
	shared.ProfilePLJPK:        {TypeOutInvoice, TypeOutRefund, TypeReceipt, TypeInInvoice, TypeInRefund},
	shared.ProfileAUTPAR:       {TypeInInvoice, TypeInRefund},
}

// ErrImmutable indicates an attempt to overwrite a posted or locked record
type ErrImmutable struct {
	ID int64
}

func (e ErrImmutable) Error() string {
	return "record is posted and cannot be modified: " + strconv.FormatInt(e.ID, 10)
}

// ErrRecordNotFound indicates a missing source record
type ErrRecordNotFound struct {
	ID int64
}

func (e ErrRecordNotFound) Error() string {
	return "record not found: " + strconv.FormatInt(e.ID, 10)
}
