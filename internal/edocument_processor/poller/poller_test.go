package poller

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/domain/edocument"
	"github.com/edocument-exchange/internal/domain/qris"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/edocument_processor/reconciler"
	"github.com/edocument-exchange/internal/mocks"
	"github.com/edocument-exchange/internal/transport"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStatusSource struct {
	mock.Mock
}

func (m *MockStatusSource) Status(ctx context.Context, doc *edocument.EDocument) (*reconciler.Verdict, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciler.Verdict), args.Error(1)
}

func (m *MockStatusSource) CheckQR(ctx context.Context, txn *qris.Transaction) (*transport.QRISPayment, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transport.QRISPayment), args.Error(1)
}

type MockSettler struct {
	mock.Mock
}

func (m *MockSettler) Apply(ctx context.Context, documentID int64, v reconciler.Verdict) error {
	return m.Called(ctx, documentID, v).Error(0)
}

func (m *MockSettler) ApplyPayment(ctx context.Context, txn *qris.Transaction, paidBy string) error {
	return m.Called(ctx, txn, paidBy).Error(0)
}

func (m *MockSettler) DiscardQR(ctx context.Context, txn *qris.Transaction, reason string) error {
	return m.Called(ctx, txn, reason).Error(0)
}

type MockCoordinator struct {
	mock.Mock
}

func (m *MockCoordinator) StartCooldown(ctx context.Context, companyID int64, profile shared.Profile, ttl time.Duration) error {
	return m.Called(ctx, companyID, profile, ttl).Error(0)
}

func (m *MockCoordinator) InCooldown(ctx context.Context, companyID int64, profile shared.Profile) (bool, error) {
	args := m.Called(ctx, companyID, profile)
	return args.Bool(0), args.Error(1)
}

func (m *MockCoordinator) Acquire(ctx context.Context, name string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, name, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockCoordinator) Release(ctx context.Context, name, token string) error {
	return m.Called(ctx, name, token).Error(0)
}

var (
	tickAt    = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	pollerCfg = config.PollerConfig{
		PollingInterval:   time.Minute,
		BatchSize:         50,
		RateLimitCooldown: 10 * time.Minute,
		TickLockTTL:       5 * time.Minute,
		QRISExpiry:        30 * time.Minute,
	}
)

type fixture struct {
	documents *mocks.DocumentRepository
	qris      *mocks.QRISRepository
	source    *MockStatusSource
	settler   *MockSettler
	throttle  *MockCoordinator
	poller    *Poller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		documents: &mocks.DocumentRepository{},
		qris:      &mocks.QRISRepository{},
		source:    &MockStatusSource{},
		settler:   &MockSettler{},
		throttle:  &MockCoordinator{},
	}
	p, err := NewPoller(pollerCfg, 4, f.documents, f.qris, f.source, f.settler, f.throttle, slog.Default())
	require.NoError(t, err)
	p.now = func() time.Time { return tickAt }
	t.Cleanup(p.Close)
	f.poller = p
	return f
}

func (f *fixture) locked() {
	f.throttle.On("Acquire", mock.Anything, tickLock, 5*time.Minute).Return("tok", nil).Once()
	f.throttle.On("Release", mock.Anything, tickLock, "tok").Return(nil).Once()
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.documents.AssertExpectations(t)
	f.qris.AssertExpectations(t)
	f.source.AssertExpectations(t)
	f.settler.AssertExpectations(t)
	f.throttle.AssertExpectations(t)
}

func sent(id, companyID int64, profile shared.Profile) *edocument.EDocument {
	doc := edocument.NewForRecord(id*10, companyID, profile, "", tickAt.Add(-time.Hour))
	doc.ID = id
	doc.State = edocument.StateInvoiceSent
	doc.LoadID = "L" + decimal.NewFromInt(id).String()
	return doc
}

func TestPoller_TickSkippedWhenLocked(t *testing.T) {
	f := newFixture(t)
	f.throttle.On("Acquire", mock.Anything, tickLock, 5*time.Minute).Return("", nil).Once()

	summary, err := f.poller.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, summary.Locked)
	f.assertExpectations(t)
	f.documents.AssertNotCalled(t, "ListOutstanding", mock.Anything, mock.Anything)
}

func TestPoller_TickLockError(t *testing.T) {
	f := newFixture(t)
	f.throttle.On("Acquire", mock.Anything, tickLock, 5*time.Minute).Return("", errors.New("redis down")).Once()

	_, err := f.poller.Tick(context.Background())
	assert.EqualError(t, err, "redis down")
}

func TestPoller_TickAppliesVerdicts(t *testing.T) {
	f := newFixture(t)
	f.locked()

	validated := sent(1, 1, shared.ProfileROCIUS)
	pending := sent(2, 1, shared.ProfileROCIUS)
	failing := sent(3, 2, shared.ProfilePLJPK)
	refused := sent(4, 3, shared.ProfileROETransport)
	f.documents.On("ListOutstanding", mock.Anything, 50).Return([]*edocument.EDocument{validated, pending, failing, refused}, nil).Once()
	f.throttle.On("InCooldown", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	validVerdict := &reconciler.Verdict{Outcome: reconciler.OutcomeValidated, Receipt: &reconciler.Receipt{Name: "semnatura.xml"}}
	f.source.On("Status", mock.Anything, validated).Return(validVerdict, nil).Once()
	f.source.On("Status", mock.Anything, pending).Return(&reconciler.Verdict{Outcome: reconciler.OutcomePending}, nil).Once()
	f.source.On("Status", mock.Anything, failing).Return(nil, shared.NewError(shared.KindTransport, "timeout", nil)).Once()
	f.source.On("Status", mock.Anything, refused).Return(nil, shared.NewError(shared.KindAuth, "token revoked", nil)).Once()

	f.settler.On("Apply", mock.Anything, int64(1), *validVerdict).Return(nil).Once()
	f.settler.On("Apply", mock.Anything, int64(2), reconciler.Verdict{Outcome: reconciler.OutcomePending}).Return(nil).Once()
	f.settler.On("Apply", mock.Anything, int64(3), reconciler.Verdict{Outcome: reconciler.OutcomePending, Message: "timeout"}).Return(nil).Once()
	f.settler.On("Apply", mock.Anything, int64(4), reconciler.Verdict{Outcome: reconciler.OutcomeRejected, Message: "token revoked"}).Return(errors.New("lock timeout")).Once()

	f.qris.On("ListUnpaid", mock.Anything, 50).Return([]*qris.Transaction{}, nil).Once()

	summary, err := f.poller.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Locked: true, Documents: 4, Settled: 1, Failed: 1}, summary)
	f.assertExpectations(t)
}

func TestPoller_RateLimitCoolsDownTheCompany(t *testing.T) {
	f := newFixture(t)
	f.locked()

	first := sent(1, 1, shared.ProfileROCIUS)
	second := sent(2, 1, shared.ProfileROCIUS)
	other := sent(3, 1, shared.ProfileROETransport)
	paused := sent(4, 2, shared.ProfileROCIUS)
	f.documents.On("ListOutstanding", mock.Anything, 50).Return([]*edocument.EDocument{first, second, other, paused}, nil).Once()

	f.throttle.On("InCooldown", mock.Anything, int64(1), shared.ProfileROCIUS).Return(false, nil).Once()
	f.throttle.On("InCooldown", mock.Anything, int64(1), shared.ProfileROETransport).Return(false, nil).Once()
	f.throttle.On("InCooldown", mock.Anything, int64(2), shared.ProfileROCIUS).Return(true, nil).Once()
	f.source.On("Status", mock.Anything, first).Return(nil, shared.NewError(shared.KindRateLimit, "HTTP 204", nil)).Once()
	f.throttle.On("StartCooldown", mock.Anything, int64(1), shared.ProfileROCIUS, 10*time.Minute).Return(nil).Once()
	f.source.On("Status", mock.Anything, other).Return(&reconciler.Verdict{Outcome: reconciler.OutcomeValidated}, nil).Once()
	f.settler.On("Apply", mock.Anything, int64(3), reconciler.Verdict{Outcome: reconciler.OutcomeValidated}).Return(nil).Once()

	f.qris.On("ListUnpaid", mock.Anything, 50).Return([]*qris.Transaction{}, nil).Once()

	summary, err := f.poller.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Documents)
	assert.Equal(t, 1, summary.CooledDown)
	assert.Equal(t, 1, summary.Settled)
	f.assertExpectations(t)
	f.source.AssertNotCalled(t, "Status", mock.Anything, second)
	f.source.AssertNotCalled(t, "Status", mock.Anything, paused)
}

func TestPoller_QRIS(t *testing.T) {
	f := newFixture(t)
	f.locked()
	f.documents.On("ListOutstanding", mock.Anything, 50).Return([]*edocument.EDocument{}, nil).Once()

	paid := &qris.Transaction{ID: 1, RecordID: 11, CompanyID: 3, InvoiceID: "A", Amount: decimal.NewFromInt(1000), RequestedAt: tickAt.Add(-time.Hour)}
	expired := &qris.Transaction{ID: 2, RecordID: 12, CompanyID: 3, InvoiceID: "B", Amount: decimal.NewFromInt(1000), RequestedAt: tickAt.Add(-31 * time.Minute)}
	waiting := &qris.Transaction{ID: 3, RecordID: 13, CompanyID: 3, InvoiceID: "C", Amount: decimal.NewFromInt(1000), RequestedAt: tickAt.Add(-5 * time.Minute)}
	broken := &qris.Transaction{ID: 4, RecordID: 14, CompanyID: 3, InvoiceID: "D", Amount: decimal.NewFromInt(1000), RequestedAt: tickAt.Add(-time.Hour)}
	f.qris.On("ListUnpaid", mock.Anything, 50).Return([]*qris.Transaction{paid, expired, waiting, broken}, nil).Once()
	f.throttle.On("InCooldown", mock.Anything, int64(3), shared.ProfileIDQRIS).Return(false, nil).Once()

	f.source.On("CheckQR", mock.Anything, paid).Return(&transport.QRISPayment{Paid: true, CustomerName: "Budi"}, nil).Once()
	f.source.On("CheckQR", mock.Anything, expired).Return(&transport.QRISPayment{}, nil).Once()
	f.source.On("CheckQR", mock.Anything, waiting).Return(&transport.QRISPayment{}, nil).Once()
	f.source.On("CheckQR", mock.Anything, broken).Return(nil, shared.NewError(shared.KindTransport, "timeout", nil)).Once()
	f.settler.On("ApplyPayment", mock.Anything, paid, "Budi").Return(nil).Once()
	f.settler.On("DiscardQR", mock.Anything, expired, "expired without payment").Return(nil).Once()

	summary, err := f.poller.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.QRPaid)
	assert.Equal(t, 1, summary.QRDiscarded)
	f.assertExpectations(t)
	f.settler.AssertNotCalled(t, "DiscardQR", mock.Anything, waiting, mock.Anything)
	f.settler.AssertNotCalled(t, "DiscardQR", mock.Anything, broken, mock.Anything)
}

func TestPoller_ListFailure(t *testing.T) {
	f := newFixture(t)
	f.locked()
	f.documents.On("ListOutstanding", mock.Anything, 50).Return(nil, errors.New("db error")).Once()

	_, err := f.poller.Tick(context.Background())
	assert.EqualError(t, err, "db error")
	f.assertExpectations(t)
}
