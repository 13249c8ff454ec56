package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
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
	"github.com/stretchr/testify/mock"
)

var testLogger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// envelope decodes the standard response with a typed data field.
type envelope[T any] struct {
	Data          T          `json:"data"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
}

func decode[T any](rr *httptest.ResponseRecorder) (envelope[T], error) {
	var env envelope[T]
	err := json.Unmarshal(rr.Body.Bytes(), &env)
	return env, err
}

type MockRecordService struct {
	mock.Mock
}

func (m *MockRecordService) SaveRecord(ctx context.Context, rec *record.SourceRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockRecordService) CorrectRecord(ctx context.Context, rec *record.SourceRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockRecordService) GetRecordByID(ctx context.Context, id int64) (*record.SourceRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.SourceRecord), args.Error(1)
}

func (m *MockRecordService) GetNotes(ctx context.Context, recordID int64, limit int) ([]*note.Note, error) {
	args := m.Called(ctx, recordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*note.Note), args.Error(1)
}

func (m *MockRecordService) GetQRCodes(ctx context.Context, recordID int64) ([]*qris.Transaction, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*qris.Transaction), args.Error(1)
}

type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) RequestSubmission(ctx context.Context, request *shared.SubmissionRequest) (string, error) {
	args := m.Called(ctx, request)
	return args.String(0), args.Error(1)
}

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) GetDocumentByID(ctx context.Context, id int64) (*edocument.EDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*edocument.EDocument), args.Error(1)
}

func (m *MockDocumentService) GetDocumentsByRecord(ctx context.Context, recordID int64) ([]*edocument.EDocument, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*edocument.EDocument), args.Error(1)
}

func (m *MockDocumentService) GetDocumentsByFlow(ctx context.Context, flowID int64) ([]*edocument.EDocument, error) {
	args := m.Called(ctx, flowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*edocument.EDocument), args.Error(1)
}

func (m *MockDocumentService) GetAttachments(ctx context.Context, documentID int64) ([]*attachment.Attachment, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*attachment.Attachment), args.Error(1)
}

func (m *MockDocumentService) GetAttachment(ctx context.Context, id string) (*attachment.Attachment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*attachment.Attachment), args.Error(1)
}

type MockFlowService struct {
	mock.Mock
}

func (m *MockFlowService) GetFlowByID(ctx context.Context, id int64) (*flow.Flow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*flow.Flow), args.Error(1)
}

func (m *MockFlowService) GetFlowsByPeriod(ctx context.Context, companyID int64, profile shared.Profile, kind flow.Kind, start, end time.Time) ([]*flow.Flow, error) {
	args := m.Called(ctx, companyID, profile, kind, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*flow.Flow), args.Error(1)
}

func (m *MockFlowService) Synchronize(ctx context.Context, companyID int64, profile shared.Profile, at time.Time) (aggregator.Result, error) {
	args := m.Called(ctx, companyID, profile, at)
	return args.Get(0).(aggregator.Result), args.Error(1)
}

type MockCompanyService struct {
	mock.Mock
}

func (m *MockCompanyService) GetSettings(ctx context.Context, companyID int64) (*company.Settings, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*company.Settings), args.Error(1)
}

func (m *MockCompanyService) SaveSettings(ctx context.Context, settings *company.Settings) error {
	return m.Called(ctx, settings).Error(0)
}
