// Package mocks holds testify mocks of the repository interfaces shared by the
// processor packages' tests.
package mocks

import (
	"context"
	"time"

	"github.com/edocument-exchange/internal/domain/attachment"
	"github.com/edocument-exchange/internal/domain/company"
	"github.com/edocument-exchange/internal/domain/edocument"
	"github.com/edocument-exchange/internal/domain/flow"
	"github.com/edocument-exchange/internal/domain/note"
	"github.com/edocument-exchange/internal/domain/outbox"
	"github.com/edocument-exchange/internal/domain/qris"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

// UnitOfWork runs the function without a database.
type UnitOfWork struct{}

func (UnitOfWork) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type RecordRepository struct {
	mock.Mock
}

func (m *RecordRepository) Upsert(ctx context.Context, rec *record.SourceRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *RecordRepository) GetByID(ctx context.Context, id int64) (*record.SourceRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.SourceRecord), args.Error(1)
}

func (m *RecordRepository) Correct(ctx context.Context, rec *record.SourceRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *RecordRepository) LockForUpdate(ctx context.Context, id int64) (*record.SourceRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.SourceRecord), args.Error(1)
}

func (m *RecordRepository) UpdateEDIState(ctx context.Context, id int64, state record.EDIState) error {
	return m.Called(ctx, id, state).Error(0)
}

func (m *RecordRepository) SetPollBlocked(ctx context.Context, id int64, blocked bool) error {
	return m.Called(ctx, id, blocked).Error(0)
}

func (m *RecordRepository) MarkDoneAndLock(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *RecordRepository) AppendDocument(ctx context.Context, id int64, documentID int64) error {
	return m.Called(ctx, id, documentID).Error(0)
}

func (m *RecordRepository) RemoveDocuments(ctx context.Context, id int64, documentIDs []int64) error {
	return m.Called(ctx, id, documentIDs).Error(0)
}

func (m *RecordRepository) RegisterPayment(ctx context.Context, id int64, reference string) error {
	return m.Called(ctx, id, reference).Error(0)
}

func (m *RecordRepository) ListEligible(ctx context.Context, companyID int64, profile shared.Profile, from, to time.Time) ([]*record.SourceRecord, error) {
	args := m.Called(ctx, companyID, profile, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*record.SourceRecord), args.Error(1)
}

func (m *RecordRepository) ListPaid(ctx context.Context, companyID int64, profile shared.Profile, from, to time.Time) ([]*record.SourceRecord, error) {
	args := m.Called(ctx, companyID, profile, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*record.SourceRecord), args.Error(1)
}

func (m *RecordRepository) ListCompanies(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *RecordRepository) WithTx(tx pgx.Tx) record.Repository {
	return m
}

type FlowRepository struct {
	mock.Mock
}

func (m *FlowRepository) Create(ctx context.Context, f *flow.Flow) error {
	return m.Called(ctx, f).Error(0)
}

func (m *FlowRepository) GetByID(ctx context.Context, id int64) (*flow.Flow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*flow.Flow), args.Error(1)
}

func (m *FlowRepository) LockForUpdate(ctx context.Context, id int64) (*flow.Flow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*flow.Flow), args.Error(1)
}

func (m *FlowRepository) ListByKey(ctx context.Context, key flow.Key) ([]*flow.Flow, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*flow.Flow), args.Error(1)
}

func (m *FlowRepository) ListByPeriod(ctx context.Context, companyID int64, profile shared.Profile, kind flow.Kind, start, end time.Time) ([]*flow.Flow, error) {
	args := m.Called(ctx, companyID, profile, kind, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*flow.Flow), args.Error(1)
}

func (m *FlowRepository) ListOpenContaining(ctx context.Context, recordID int64) ([]*flow.Flow, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*flow.Flow), args.Error(1)
}

func (m *FlowRepository) Update(ctx context.Context, f *flow.Flow) error {
	return m.Called(ctx, f).Error(0)
}

func (m *FlowRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *FlowRepository) WithTx(tx pgx.Tx) flow.Repository {
	return m
}

type DocumentRepository struct {
	mock.Mock
}

func (m *DocumentRepository) Create(ctx context.Context, doc *edocument.EDocument) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *DocumentRepository) GetByID(ctx context.Context, id int64) (*edocument.EDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*edocument.EDocument), args.Error(1)
}

func (m *DocumentRepository) ListByRecord(ctx context.Context, recordID int64) ([]*edocument.EDocument, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*edocument.EDocument), args.Error(1)
}

func (m *DocumentRepository) ListByFlow(ctx context.Context, flowID int64) ([]*edocument.EDocument, error) {
	args := m.Called(ctx, flowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*edocument.EDocument), args.Error(1)
}

func (m *DocumentRepository) ListOutstanding(ctx context.Context, limit int) ([]*edocument.EDocument, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*edocument.EDocument), args.Error(1)
}

func (m *DocumentRepository) Update(ctx context.Context, doc *edocument.EDocument) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *DocumentRepository) DeleteSuperseded(ctx context.Context, keep *edocument.EDocument) ([]int64, error) {
	args := m.Called(ctx, keep)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *DocumentRepository) WithTx(tx pgx.Tx) edocument.Repository {
	return m
}

type CompanyRepository struct {
	mock.Mock
}

func (m *CompanyRepository) Get(ctx context.Context, companyID int64) (*company.Settings, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*company.Settings), args.Error(1)
}

func (m *CompanyRepository) Save(ctx context.Context, s *company.Settings) error {
	return m.Called(ctx, s).Error(0)
}

func (m *CompanyRepository) WithTx(tx pgx.Tx) company.Repository {
	return m
}

type QRISRepository struct {
	mock.Mock
}

func (m *QRISRepository) Create(ctx context.Context, txn *qris.Transaction) error {
	return m.Called(ctx, txn).Error(0)
}

func (m *QRISRepository) GetByID(ctx context.Context, id int64) (*qris.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*qris.Transaction), args.Error(1)
}

func (m *QRISRepository) ListUnpaid(ctx context.Context, limit int) ([]*qris.Transaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*qris.Transaction), args.Error(1)
}

func (m *QRISRepository) ListByRecord(ctx context.Context, recordID int64) ([]*qris.Transaction, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*qris.Transaction), args.Error(1)
}

func (m *QRISRepository) MarkPaid(ctx context.Context, id int64, paidBy string, paidAt time.Time) error {
	return m.Called(ctx, id, paidBy, paidAt).Error(0)
}

func (m *QRISRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *QRISRepository) WithTx(tx pgx.Tx) qris.Repository {
	return m
}

type AttachmentRepository struct {
	mock.Mock
}

func (m *AttachmentRepository) Save(ctx context.Context, a *attachment.Attachment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *AttachmentRepository) Get(ctx context.Context, id string) (*attachment.Attachment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*attachment.Attachment), args.Error(1)
}

func (m *AttachmentRepository) ListByDocument(ctx context.Context, documentID int64) ([]*attachment.Attachment, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*attachment.Attachment), args.Error(1)
}

func (m *AttachmentRepository) DeleteByDocuments(ctx context.Context, documentIDs []int64) (int64, error) {
	args := m.Called(ctx, documentIDs)
	return args.Get(0).(int64), args.Error(1)
}

type NoteRepository struct {
	mock.Mock
}

func (m *NoteRepository) Add(ctx context.Context, n *note.Note) error {
	return m.Called(ctx, n).Error(0)
}

func (m *NoteRepository) ListByRecord(ctx context.Context, recordID int64, limit int) ([]*note.Note, error) {
	args := m.Called(ctx, recordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*note.Note), args.Error(1)
}

type OutboxRepository struct {
	mock.Mock
}

func (m *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *OutboxRepository) Claim(ctx context.Context, limit int, lease time.Duration) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit, lease)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *OutboxRepository) MarkPublished(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *OutboxRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}
