package aggregator

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/domain/company"
	"github.com/edocument-exchange/internal/domain/flow"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/record/recordtest"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	julyStart = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	julyEnd   = time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)
	syncedAt  = time.Date(2024, 8, 2, 9, 0, 0, 0, time.UTC)
)

func newTestAggregator(records *mocks.RecordRepository, flows *mocks.FlowRepository, companies *mocks.CompanyRepository, maxRecords int) *Aggregator {
	a := NewAggregator(slog.New(slog.NewTextHandler(io.Discard, nil)), mocks.UnitOfWork{}, records, flows, companies,
		config.AggregatorConfig{MaxRecordsPerFlow: maxRecords, SyncInterval: time.Hour})
	a.now = func() time.Time { return syncedAt }
	return a
}

func julyKey() flow.Key {
	return flow.Key{
		CompanyID:   2,
		Profile:     shared.ProfileROETransport,
		Kind:        flow.KindTransaction,
		PeriodStart: julyStart,
		PeriodEnd:   julyEnd,
		Periodicity: flow.Monthly,
		Currency:    "RON",
		Scope:       flow.ScopeInternational,
	}
}

func pickings(ids ...int64) []*record.SourceRecord {
	recs := make([]*record.SourceRecord, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, recordtest.Picking(id))
	}
	return recs
}

func fingerprintsOf(t *testing.T, recs []*record.SourceRecord) map[int64]string {
	t.Helper()
	fps, err := fingerprints(recs)
	require.NoError(t, err)
	return fps
}

func storedFlow(id int64, state flow.State, batch int, fps map[int64]string) *flow.Flow {
	f := flow.New(julyKey(), julyStart)
	f.ID = id
	f.State = state
	f.Batch = batch
	f.SetRecords(fps)
	return f
}

func TestAggregator_SyncPeriod_SplitsIntoEqualBatches(t *testing.T) {
	ctx := context.Background()
	records := new(mocks.RecordRepository)
	flows := new(mocks.FlowRepository)

	records.On("ListEligible", ctx, int64(2), shared.ProfileROETransport, julyStart, julyEnd).
		Return(pickings(5, 3, 1, 4, 2), nil)
	flows.On("ListByPeriod", ctx, int64(2), shared.ProfileROETransport, flow.KindTransaction, julyStart, julyEnd).
		Return([]*flow.Flow{}, nil)

	var created []*flow.Flow
	flows.On("Create", ctx, mock.AnythingOfType("*flow.Flow")).Run(func(args mock.Arguments) {
		created = append(created, args.Get(1).(*flow.Flow))
	}).Return(nil)

	a := newTestAggregator(records, flows, nil, 2)
	res, err := a.SyncPeriod(ctx, 2, shared.ProfileROETransport, flow.KindTransaction, flow.Monthly, Period{Start: julyStart, End: julyEnd})
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 3}, res)

	require.Len(t, created, 3)
	assert.Equal(t, []int64{1, 2}, created[0].RecordIDs)
	assert.Equal(t, []int64{3, 4}, created[1].RecordIDs)
	assert.Equal(t, []int64{5}, created[2].RecordIDs)
	for i, f := range created {
		assert.Equal(t, i, f.Batch)
		assert.Equal(t, julyKey(), f.Key())
		assert.Equal(t, shared.TransmissionInitial, f.TransmissionType)
		assert.Equal(t, flow.StateDraft, f.State)
	}
	flows.AssertExpectations(t)
}

func TestAggregator_SyncPeriod_ReusesOpenFlows(t *testing.T) {
	ctx := context.Background()
	recs := pickings(1, 2)
	fps := fingerprintsOf(t, recs)

	t.Run("changed content becomes a modification of the sent flow", func(t *testing.T) {
		records := new(mocks.RecordRepository)
		flows := new(mocks.FlowRepository)

		sent := storedFlow(7, flow.StateSent, 0, map[int64]string{1: fps[1]})
		sent.UIT = "7Y0N1Q2R3S4T5U6V"
		failed := storedFlow(8, flow.StateError, 0, map[int64]string{1: "stale"})
		failed.Message = "upload refused"
		leftover := storedFlow(9, flow.StateDraft, 1, map[int64]string{3: "gone"})

		records.On("ListEligible", ctx, int64(2), shared.ProfileROETransport, julyStart, julyEnd).Return(recs, nil)
		flows.On("ListByPeriod", ctx, int64(2), shared.ProfileROETransport, flow.KindTransaction, julyStart, julyEnd).
			Return([]*flow.Flow{sent, failed, leftover}, nil)
		flows.On("Update", ctx, failed).Return(nil).Once()
		flows.On("Delete", ctx, int64(9)).Return(nil).Once()

		a := newTestAggregator(records, flows, nil, 10)
		res, err := a.SyncPeriod(ctx, 2, shared.ProfileROETransport, flow.KindTransaction, flow.Monthly, Period{Start: julyStart, End: julyEnd})
		require.NoError(t, err)
		assert.Equal(t, Result{Updated: 1, Deleted: 1}, res)

		assert.Equal(t, flow.StateDraft, failed.State)
		assert.Empty(t, failed.Message)
		assert.Equal(t, []int64{1, 2}, failed.RecordIDs)
		assert.Equal(t, shared.TransmissionModification, failed.TransmissionType)
		assert.True(t, failed.IsCorrection)
		assert.Equal(t, "7Y0N1Q2R3S4T5U6V", failed.Reference)
		assert.Equal(t, syncedAt, failed.UpdatedAt)
		flows.AssertExpectations(t)
		flows.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("content already reported is skipped", func(t *testing.T) {
		records := new(mocks.RecordRepository)
		flows := new(mocks.FlowRepository)

		sent := storedFlow(7, flow.StateValidated, 0, fps)
		ready := storedFlow(8, flow.StateReady, 0, fps)

		records.On("ListEligible", ctx, int64(2), shared.ProfileROETransport, julyStart, julyEnd).Return(recs, nil)
		flows.On("ListByPeriod", ctx, int64(2), shared.ProfileROETransport, flow.KindTransaction, julyStart, julyEnd).
			Return([]*flow.Flow{sent, ready}, nil)
		flows.On("Update", ctx, ready).Return(nil).Once()
		flows.On("Delete", ctx, int64(8)).Return(nil).Once()

		a := newTestAggregator(records, flows, nil, 10)
		res, err := a.SyncPeriod(ctx, 2, shared.ProfileROETransport, flow.KindTransaction, flow.Monthly, Period{Start: julyStart, End: julyEnd})
		require.NoError(t, err)
		assert.Equal(t, Result{Skipped: 1, Deleted: 1}, res)
		assert.Empty(t, ready.RecordIDs)
		assert.Equal(t, flow.StateDraft, ready.State)
		flows.AssertExpectations(t)
	})

	t.Run("unchanged open flow is left alone", func(t *testing.T) {
		records := new(mocks.RecordRepository)
		flows := new(mocks.FlowRepository)

		ready := storedFlow(8, flow.StateReady, 0, fps)
		records.On("ListEligible", ctx, int64(2), shared.ProfileROETransport, julyStart, julyEnd).Return(recs, nil)
		flows.On("ListByPeriod", ctx, int64(2), shared.ProfileROETransport, flow.KindTransaction, julyStart, julyEnd).
			Return([]*flow.Flow{ready}, nil)

		a := newTestAggregator(records, flows, nil, 10)
		res, err := a.SyncPeriod(ctx, 2, shared.ProfileROETransport, flow.KindTransaction, flow.Monthly, Period{Start: julyStart, End: julyEnd})
		require.NoError(t, err)
		assert.Equal(t, Result{}, res)
		assert.Equal(t, flow.StateReady, ready.State)
		flows.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("amendments are not touched", func(t *testing.T) {
		records := new(mocks.RecordRepository)
		flows := new(mocks.FlowRepository)

		priorID := int64(7)
		amendment := storedFlow(10, flow.StateReady, 0, map[int64]string{1: "corrected"})
		amendment.ReferenceID = &priorID

		records.On("ListEligible", ctx, int64(2), shared.ProfileROETransport, julyStart, julyEnd).Return([]*record.SourceRecord{}, nil)
		flows.On("ListByPeriod", ctx, int64(2), shared.ProfileROETransport, flow.KindTransaction, julyStart, julyEnd).
			Return([]*flow.Flow{amendment}, nil)

		a := newTestAggregator(records, flows, nil, 10)
		res, err := a.SyncPeriod(ctx, 2, shared.ProfileROETransport, flow.KindTransaction, flow.Monthly, Period{Start: julyStart, End: julyEnd})
		require.NoError(t, err)
		assert.Equal(t, Result{}, res)
		flows.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		flows.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestTransmission(t *testing.T) {
	batch := map[int64]string{1: "a", 2: "b"}
	sent := func(fps map[int64]string, uit string) *flow.Flow {
		f := &flow.Flow{UIT: uit}
		f.SetRecords(fps)
		return f
	}

	tests := []struct {
		name      string
		reported  []*flow.Flow
		want      shared.TransmissionType
		wantPrior string
		wantSkip  bool
	}{
		{name: "nothing reported", want: shared.TransmissionInitial},
		{name: "identical to last sent", reported: []*flow.Flow{sent(map[int64]string{1: "a", 2: "b"}, "U1")}, wantPrior: "U1", wantSkip: true},
		{name: "overlap", reported: []*flow.Flow{sent(map[int64]string{1: "a"}, "U1")}, want: shared.TransmissionModification, wantPrior: "U1"},
		{name: "latest overlapping wins", reported: []*flow.Flow{
			sent(map[int64]string{1: "a"}, "U1"),
			sent(map[int64]string{2: "old"}, "U2"),
		}, want: shared.TransmissionModification, wantPrior: "U2"},
		{name: "disjoint", reported: []*flow.Flow{sent(map[int64]string{3: "c"}, "U1")}, want: shared.TransmissionComplement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, prior, skip := transmission(batch, tt.reported)
			assert.Equal(t, tt.wantSkip, skip)
			if !tt.wantSkip {
				assert.Equal(t, tt.want, got)
			}
			if tt.wantPrior == "" {
				assert.Nil(t, prior)
			} else {
				require.NotNil(t, prior)
				assert.Equal(t, tt.wantPrior, prior.Handle())
			}
		})
	}
}

func TestScopeOf(t *testing.T) {
	person := func(country string) *record.SourceRecord {
		rec := recordtest.Picking(1)
		rec.Partner.IsCompany = false
		rec.Partner.CountryCode = country
		return rec
	}
	business := func(country string) *record.SourceRecord {
		rec := recordtest.Picking(1)
		rec.Partner.CountryCode = country
		return rec
	}

	tests := []struct {
		name string
		recs []*record.SourceRecord
		want flow.Scope
	}{
		{"consumers only", []*record.SourceRecord{person("RO"), person("HU")}, flow.ScopeB2C},
		{"businesses abroad", []*record.SourceRecord{business("HU"), business("BG")}, flow.ScopeInternational},
		{"domestic business", []*record.SourceRecord{business("RO")}, flow.ScopeMixed},
		{"consumers and businesses", []*record.SourceRecord{person("RO"), business("HU")}, flow.ScopeMixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scopeOf(tt.recs))
		})
	}
}

func TestAggregator_Sync(t *testing.T) {
	ctx := context.Background()

	t.Run("eTransport covers the current and previous decade", func(t *testing.T) {
		records := new(mocks.RecordRepository)
		flows := new(mocks.FlowRepository)
		companies := new(mocks.CompanyRepository)

		companies.On("Get", ctx, int64(2)).Return(company.Defaults(2), nil)
		first := Period{Start: julyStart, End: time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC)}
		second := Period{Start: time.Date(2024, 7, 11, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 7, 20, 0, 0, 0, 0, time.UTC)}
		for _, p := range []Period{first, second} {
			records.On("ListEligible", ctx, int64(2), shared.ProfileROETransport, p.Start, p.End).Return([]*record.SourceRecord{}, nil).Once()
			flows.On("ListByPeriod", ctx, int64(2), shared.ProfileROETransport, flow.KindTransaction, p.Start, p.End).Return([]*flow.Flow{}, nil).Once()
		}

		a := newTestAggregator(records, flows, companies, 10)
		res, err := a.Sync(ctx, 2, shared.ProfileROETransport, time.Date(2024, 7, 15, 8, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, Result{}, res)
		records.AssertExpectations(t)
		flows.AssertExpectations(t)
	})

	t.Run("JPK synchronizes payments too", func(t *testing.T) {
		records := new(mocks.RecordRepository)
		flows := new(mocks.FlowRepository)
		companies := new(mocks.CompanyRepository)

		settings := company.Defaults(4)
		settings.JPK.PaymentPeriodicity = flow.Quarterly
		companies.On("Get", ctx, int64(4)).Return(settings, nil)

		march := Period{Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)}
		april := Period{Start: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)}
		q1 := Period{Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), End: march.End}
		q2 := Period{Start: april.Start, End: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)}
		for _, p := range []Period{march, april} {
			records.On("ListEligible", ctx, int64(4), shared.ProfilePLJPK, p.Start, p.End).Return([]*record.SourceRecord{}, nil).Once()
			flows.On("ListByPeriod", ctx, int64(4), shared.ProfilePLJPK, flow.KindTransaction, p.Start, p.End).Return([]*flow.Flow{}, nil).Once()
		}
		for _, p := range []Period{q1, q2} {
			records.On("ListPaid", ctx, int64(4), shared.ProfilePLJPK, p.Start, p.End).Return([]*record.SourceRecord{}, nil).Once()
			flows.On("ListByPeriod", ctx, int64(4), shared.ProfilePLJPK, flow.KindPayment, p.Start, p.End).Return([]*flow.Flow{}, nil).Once()
		}

		a := newTestAggregator(records, flows, companies, 10)
		_, err := a.Sync(ctx, 4, shared.ProfilePLJPK, time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		records.AssertExpectations(t)
		flows.AssertExpectations(t)
	})

	t.Run("profile reporting single records", func(t *testing.T) {
		a := newTestAggregator(new(mocks.RecordRepository), new(mocks.FlowRepository), new(mocks.CompanyRepository), 10)
		_, err := a.Sync(ctx, 1, shared.ProfileFRCIUS, syncedAt)
		assert.Equal(t, shared.KindConfiguration, shared.KindOf(err))
	})
}

func TestAggregator_Amend(t *testing.T) {
	ctx := context.Background()

	t.Run("shipment correction references the sent UIT", func(t *testing.T) {
		records := new(mocks.RecordRepository)
		flows := new(mocks.FlowRepository)

		recs := pickings(1, 2, 3)
		prior := storedFlow(7, flow.StateValidated, 0, fingerprintsOf(t, recs))
		prior.LoadID = "5001"
		prior.UIT = "7Y0N1Q2R3S4T5U6V"

		corrected := recordtest.Picking(2)
		corrected.Lines = corrected.Lines[:0]

		flows.On("GetByID", ctx, int64(7)).Return(prior, nil)
		flows.On("LockForUpdate", ctx, int64(7)).Return(prior, nil)
		records.On("GetByID", ctx, int64(1)).Return(recs[0], nil)
		records.On("GetByID", ctx, int64(2)).Return(corrected, nil)
		records.On("GetByID", ctx, int64(3)).Return(recs[2], nil)
		flows.On("ListByKey", ctx, julyKey()).Return([]*flow.Flow{prior}, nil)

		var created *flow.Flow
		flows.On("Create", ctx, mock.AnythingOfType("*flow.Flow")).Run(func(args mock.Arguments) {
			created = args.Get(1).(*flow.Flow)
			created.ID = 11
		}).Return(nil).Once()

		a := newTestAggregator(records, flows, nil, 10)
		pending, err := a.Amend(ctx, 7)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Same(t, created, pending[0])

		assert.Equal(t, shared.TransmissionModification, created.TransmissionType)
		assert.True(t, created.IsCorrection)
		assert.Equal(t, "7Y0N1Q2R3S4T5U6V", created.Reference)
		require.NotNil(t, created.ReferenceID)
		assert.Equal(t, int64(7), *created.ReferenceID)
		assert.Equal(t, []int64{1, 2, 3}, created.RecordIDs)
		assert.NotEqual(t, prior.Fingerprints[2], created.Fingerprints[2])
	})

	t.Run("open flows cannot be amended", func(t *testing.T) {
		flows := new(mocks.FlowRepository)
		flows.On("GetByID", ctx, int64(8)).Return(storedFlow(8, flow.StateReady, 0, nil), nil)

		a := newTestAggregator(new(mocks.RecordRepository), flows, nil, 10)
		_, err := a.Amend(ctx, 8)
		assert.Equal(t, shared.KindConfiguration, shared.KindOf(err))
	})

	t.Run("unchanged periodic report has nothing to amend", func(t *testing.T) {
		records := new(mocks.RecordRepository)
		flows := new(mocks.FlowRepository)

		march := Period{Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)}
		recs := []*record.SourceRecord{recordtest.PLInvoice(1, record.TypeOutInvoice, "100", "23", "K_19", "K_20")}
		prior := flow.New(flow.Key{
			CompanyID: 4, Profile: shared.ProfilePLJPK, Kind: flow.KindTransaction, PeriodStart: march.Start,
			PeriodEnd: march.End, Periodicity: flow.Monthly, Currency: "PLN", Scope: flow.ScopeMixed,
		}, march.End)
		prior.ID = 12
		prior.State = flow.StateValidated
		prior.LoadID = "d3f0a1c2"
		prior.SetRecords(fingerprintsOf(t, recs))

		flows.On("GetByID", ctx, int64(12)).Return(prior, nil)
		records.On("ListEligible", ctx, int64(4), shared.ProfilePLJPK, march.Start, march.End).Return(recs, nil)
		flows.On("ListByPeriod", ctx, int64(4), shared.ProfilePLJPK, flow.KindTransaction, march.Start, march.End).
			Return([]*flow.Flow{prior}, nil)

		a := newTestAggregator(records, flows, nil, 10)
		_, err := a.Amend(ctx, 12)
		assert.Equal(t, shared.KindConfiguration, shared.KindOf(err))
		flows.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func marchJPK(id int64, state flow.State) *flow.Flow {
	march := Period{Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)}
	f := flow.New(flow.Key{
		CompanyID: 4, Profile: shared.ProfilePLJPK, Kind: flow.KindTransaction, PeriodStart: march.Start,
		PeriodEnd: march.End, Periodicity: flow.Monthly, Currency: "PLN", Scope: flow.ScopeMixed,
	}, march.End)
	f.ID = id
	f.State = state
	return f
}

func TestAggregator_Rectify(t *testing.T) {
	ctx := context.Background()
	recs := []*record.SourceRecord{
		recordtest.PLInvoice(1, record.TypeOutInvoice, "100", "23", "K_19", "K_20"),
		recordtest.PLInvoice(2, record.TypeOutInvoice, "50", "23", "K_19", "K_20"),
	}

	t.Run("replaces the latest report of the batch", func(t *testing.T) {
		records := new(mocks.RecordRepository)
		flows := new(mocks.FlowRepository)

		initial := marchJPK(12, flow.StateValidated)
		initial.LoadID = "d3f0a1c2"
		initial.SetRecords(fingerprintsOf(t, recs))
		complement := marchJPK(15, flow.StateSent)
		complement.LoadID = "e4a1b2c3"
		complement.TransmissionType = shared.TransmissionComplement
		otherBatch := marchJPK(16, flow.StateSent)
		otherBatch.Batch = 1
		otherBatch.LoadID = "f5b2c3d4"

		flows.On("GetByID", ctx, int64(12)).Return(initial, nil)
		flows.On("LockForUpdate", ctx, int64(12)).Return(initial, nil)
		records.On("GetByID", ctx, int64(1)).Return(recs[0], nil)
		records.On("GetByID", ctx, int64(2)).Return(recs[1], nil)
		flows.On("ListByKey", ctx, initial.Key()).Return([]*flow.Flow{initial, complement, otherBatch}, nil)

		var created *flow.Flow
		flows.On("Create", ctx, mock.AnythingOfType("*flow.Flow")).Run(func(args mock.Arguments) {
			created = args.Get(1).(*flow.Flow)
			created.ID = 20
		}).Return(nil).Once()

		a := newTestAggregator(records, flows, nil, 10)
		rectification, err := a.Rectify(ctx, 12)
		require.NoError(t, err)
		assert.Same(t, created, rectification)

		assert.Equal(t, shared.TransmissionRectification, rectification.TransmissionType)
		assert.True(t, rectification.IsCorrection)
		assert.Equal(t, "e4a1b2c3", rectification.Reference)
		require.NotNil(t, rectification.ReferenceID)
		assert.Equal(t, int64(15), *rectification.ReferenceID)
		assert.Equal(t, []int64{1, 2}, rectification.RecordIDs)
		assert.Equal(t, 0, rectification.Batch)
		assert.Equal(t, flow.StateDraft, rectification.State)
	})

	t.Run("an open rectification is refreshed", func(t *testing.T) {
		records := new(mocks.RecordRepository)
		flows := new(mocks.FlowRepository)

		initial := marchJPK(12, flow.StateSent)
		initial.LoadID = "d3f0a1c2"
		initial.SetRecords(fingerprintsOf(t, recs[:1]))
		priorID := int64(12)
		open := marchJPK(20, flow.StateError)
		open.TransmissionType = shared.TransmissionRectification
		open.ReferenceID = &priorID
		open.Message = "rejected"

		flows.On("GetByID", ctx, int64(12)).Return(initial, nil)
		flows.On("LockForUpdate", ctx, int64(12)).Return(initial, nil)
		records.On("GetByID", ctx, int64(1)).Return(recs[0], nil)
		flows.On("ListByKey", ctx, initial.Key()).Return([]*flow.Flow{initial, open}, nil)
		flows.On("Update", ctx, open).Return(nil).Once()

		a := newTestAggregator(records, flows, nil, 10)
		rectification, err := a.Rectify(ctx, 12)
		require.NoError(t, err)
		assert.Same(t, open, rectification)
		assert.Equal(t, flow.StateDraft, open.State)
		assert.Empty(t, open.Message)
		assert.Equal(t, "d3f0a1c2", open.Reference)
		flows.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("refused", func(t *testing.T) {
		shipment := storedFlow(7, flow.StateSent, 0, nil)
		tests := []struct {
			name string
			flow *flow.Flow
		}{
			{"open report", marchJPK(12, flow.StateReady)},
			{"shipment declaration", shipment},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				flows := new(mocks.FlowRepository)
				flows.On("GetByID", ctx, tt.flow.ID).Return(tt.flow, nil)

				a := newTestAggregator(new(mocks.RecordRepository), flows, nil, 10)
				_, err := a.Rectify(ctx, tt.flow.ID)
				assert.Equal(t, shared.KindConfiguration, shared.KindOf(err))
				flows.AssertNotCalled(t, "LockForUpdate", mock.Anything, mock.Anything)
			})
		}
	})
}
