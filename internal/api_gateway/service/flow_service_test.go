package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/edocument-exchange/internal/domain/company"
	"github.com/edocument-exchange/internal/domain/flow"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/edocument_processor/aggregator"
	"github.com/edocument-exchange/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSynchronizer struct {
	mock.Mock
}

func (m *MockSynchronizer) Sync(ctx context.Context, companyID int64, profile shared.Profile, at time.Time) (aggregator.Result, error) {
	args := m.Called(ctx, companyID, profile, at)
	return args.Get(0).(aggregator.Result), args.Error(1)
}

func TestFlowServiceImpl_GetFlowByID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		flows := new(mocks.FlowRepository)
		service := NewFlowService(logger, flows, new(MockSynchronizer))
		expected := &flow.Flow{ID: 5, Profile: shared.ProfilePLJPK, State: flow.StateDraft}
		flows.On("GetByID", ctx, int64(5)).Return(expected, nil).Once()

		f, err := service.GetFlowByID(ctx, 5)

		require.NoError(t, err)
		assert.Equal(t, expected, f)
	})

	t.Run("not found", func(t *testing.T) {
		flows := new(mocks.FlowRepository)
		service := NewFlowService(logger, flows, new(MockSynchronizer))
		flows.On("GetByID", ctx, int64(5)).Return(nil, flow.ErrFlowNotFound{ID: 5}).Once()

		f, err := service.GetFlowByID(ctx, 5)

		assert.NoError(t, err)
		assert.Nil(t, f)
	})
}

func TestFlowServiceImpl_GetFlowsByPeriod(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx := context.Background()
	flows := new(mocks.FlowRepository)
	service := NewFlowService(logger, flows, new(MockSynchronizer))

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	expected := []*flow.Flow{{ID: 5}, {ID: 6, Batch: 1}}
	flows.On("ListByPeriod", ctx, int64(2), shared.ProfilePLJPK, flow.KindTransaction, start, end).Return(expected, nil).Once()

	got, err := service.GetFlowsByPeriod(ctx, 2, shared.ProfilePLJPK, flow.KindTransaction, start, end)

	require.NoError(t, err)
	assert.Equal(t, expected, got)
}

func TestFlowServiceImpl_Synchronize(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx := context.Background()
	at := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		profile    shared.Profile
		setup      func(s *MockSynchronizer)
		wantResult aggregator.Result
		wantErr    error
	}{
		{
			name:    "aggregated profile",
			profile: shared.ProfileROETransport,
			setup: func(s *MockSynchronizer) {
				s.On("Sync", ctx, int64(2), shared.ProfileROETransport, at).Return(aggregator.Result{Created: 1, Updated: 2}, nil).Once()
			},
			wantResult: aggregator.Result{Created: 1, Updated: 2},
		},
		{
			name:    "single record profile",
			profile: shared.ProfileROCIUS,
			setup:   func(s *MockSynchronizer) {},
			wantErr: shared.ErrInvalidProfile,
		},
		{
			name:    "settings rejected",
			profile: shared.ProfilePLJPK,
			setup: func(s *MockSynchronizer) {
				s.On("Sync", ctx, int64(2), shared.ProfilePLJPK, at).
					Return(aggregator.Result{}, company.ErrInvalidSettings{CompanyID: 2, Reason: "bad periodicity"}).Once()
			},
			wantErr: company.ErrInvalidSettings{CompanyID: 2, Reason: "bad periodicity"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synchronizer := new(MockSynchronizer)
			tt.setup(synchronizer)
			service := NewFlowService(logger, new(mocks.FlowRepository), synchronizer)

			result, err := service.Synchronize(ctx, 2, tt.profile, at)

			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantResult, result)
			synchronizer.AssertExpectations(t)
		})
	}
}
