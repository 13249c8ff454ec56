package producers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockKafkaWriter mocks KafkaWriter interface
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestTopicProducer_Publish(t *testing.T) {
	topic := "edocument-requests"

	t.Run("carries the correlation id", func(t *testing.T) {
		ctx := logger.WithCorrelationID(context.Background(), "corr-42")
		mockWriter := new(MockKafkaWriter)
		producer := &TopicProducer{logger: testLogger(), writer: mockWriter, topic: topic}

		req := &shared.SubmissionRequest{RecordID: 7, Profile: shared.ProfileROCIUS, Action: shared.ActionSend}
		expected, _ := json.Marshal(req)

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			msg := msgs[0]
			return string(msg.Key) == "record-7" && string(msg.Value) == string(expected) &&
				len(msg.Headers) == 1 && msg.Headers[0].Key == CorrelationHeader && string(msg.Headers[0].Value) == "corr-42"
		})).Return(nil).Once()

		require.NoError(t, producer.Publish(ctx, "record-7", req))
		mockWriter.AssertExpectations(t)
	})

	t.Run("no header without correlation id", func(t *testing.T) {
		ctx := context.Background()
		mockWriter := new(MockKafkaWriter)
		producer := &TopicProducer{logger: testLogger(), writer: mockWriter, topic: topic}

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			return len(msgs) == 1 && len(msgs[0].Headers) == 0
		})).Return(nil).Once()

		require.NoError(t, producer.Publish(ctx, "flow-3", map[string]int{"flow_id": 3}))
		mockWriter.AssertExpectations(t)
	})

	t.Run("writer error", func(t *testing.T) {
		ctx := context.Background()
		mockWriter := new(MockKafkaWriter)
		producer := &TopicProducer{logger: testLogger(), writer: mockWriter, topic: topic}

		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(errors.New("kafka write error")).Once()

		err := producer.Publish(ctx, "record-8", map[string]string{"data": "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to publish message to edocument-requests")
		mockWriter.AssertExpectations(t)
	})

	t.Run("unmarshalable value", func(t *testing.T) {
		producer := &TopicProducer{logger: testLogger(), writer: new(MockKafkaWriter), topic: topic}

		err := producer.Publish(context.Background(), "k", make(chan int))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to marshal message")
	})
}

func TestTopicProducer_Close(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	producer := &TopicProducer{logger: testLogger(), writer: mockWriter, topic: "events"}

	mockWriter.On("Close").Return(errors.New("close failed")).Once()
	err := producer.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events")
	mockWriter.AssertExpectations(t)
}
