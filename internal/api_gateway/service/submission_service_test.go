package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockMessagingProducer struct {
	mock.Mock
}

func (m *MockMessagingProducer) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagingProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestSubmissionServiceImpl_RequestSubmission(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockProducer := new(MockMessagingProducer)
		service := NewSubmissionService(logger, mockProducer)
		request := &shared.SubmissionRequest{
			RequestID:     uuid.New(),
			RecordID:      7,
			Profile:       shared.ProfileROCIUS,
			Action:        shared.ActionSend,
			CorrelationID: "corr-1",
			Timestamp:     time.Now(),
		}

		mockProducer.On("Publish", ctx, "record-7", request).Return(nil).Once()

		requestID, err := service.RequestSubmission(ctx, request)

		assert.NoError(t, err)
		assert.Equal(t, request.RequestID.String(), requestID)
		mockProducer.AssertExpectations(t)
	})

	t.Run("FlowKey", func(t *testing.T) {
		mockProducer := new(MockMessagingProducer)
		service := NewSubmissionService(logger, mockProducer)
		request := &shared.SubmissionRequest{
			RequestID: uuid.New(),
			FlowID:    12,
			Profile:   shared.ProfilePLJPK,
			Action:    shared.ActionAmend,
		}

		mockProducer.On("Publish", ctx, "flow-12", request).Return(nil).Once()

		_, err := service.RequestSubmission(ctx, request)

		assert.NoError(t, err)
		mockProducer.AssertExpectations(t)
	})

	t.Run("InvalidRequest", func(t *testing.T) {
		mockProducer := new(MockMessagingProducer)
		service := NewSubmissionService(logger, mockProducer)
		request := &shared.SubmissionRequest{
			RequestID: uuid.New(),
			RecordID:  7,
			Profile:   "de_xrechnung",
			Action:    shared.ActionSend,
		}

		requestID, err := service.RequestSubmission(ctx, request)

		assert.ErrorIs(t, err, shared.ErrInvalidProfile)
		assert.Empty(t, requestID)
		mockProducer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("PublishError", func(t *testing.T) {
		mockProducer := new(MockMessagingProducer)
		service := NewSubmissionService(logger, mockProducer)
		request := &shared.SubmissionRequest{
			RequestID: uuid.New(),
			RecordID:  7,
			Profile:   shared.ProfileJOUBL,
			Action:    shared.ActionSend,
		}
		expectedErr := errors.New("broker unavailable")

		mockProducer.On("Publish", ctx, "record-7", request).Return(expectedErr).Once()

		requestID, err := service.RequestSubmission(ctx, request)

		assert.ErrorIs(t, err, expectedErr)
		assert.Empty(t, requestID)
		mockProducer.AssertExpectations(t)
	})
}
