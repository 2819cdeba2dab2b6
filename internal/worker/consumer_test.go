package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bidmarket/notifier/internal/app/registry"
	"github.com/bidmarket/notifier/internal/domain"
	"github.com/bidmarket/notifier/internal/domain/port/broker"
)

// --- Mocks ---

type MockMessage struct {
	mock.Mock
	data       domain.Job
	retryCount int
	headers    []kafka.Header
}

func (m *MockMessage) Data() domain.Job {
	return m.data
}
func (m *MockMessage) GetRetryCount() int {
	return m.retryCount
}
func (m *MockMessage) Ack(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockMessage) Retry(ctx context.Context, delay time.Duration) error {
	args := m.Called(ctx, delay)
	return args.Error(0)
}
func (m *MockMessage) MoveToDLQ(ctx context.Context, processingError error) error {
	args := m.Called(ctx, processingError)
	return args.Error(0)
}
func (m *MockMessage) Headers() []kafka.Header {
	return m.headers
}

var _ broker.Message = (*MockMessage)(nil)

type MockMessageBroker struct {
	mock.Mock
}

func (m *MockMessageBroker) Consume(ctx context.Context, consumeFunc func(ctx context.Context, msg broker.Message) error) error {
	args := m.Called(ctx, consumeFunc)
	return args.Error(0)
}
func (m *MockMessageBroker) Publish(ctx context.Context, job domain.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}
func (m *MockMessageBroker) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ broker.MessageBroker = (*MockMessageBroker)(nil)

// --- Test Data ---

func sampleJob(queue, name string) domain.Job {
	return domain.Job{
		ID:         "job-1",
		Queue:      queue,
		Name:       name,
		Payload:    json.RawMessage(`{"order_id":"ord-1"}`),
		EnqueuedAt: time.Now(),
	}
}

func newTestConsumer(t *testing.T, reg *registry.QueueRegistry) *Consumer {
	t.Helper()
	return NewConsumer(&MockMessageBroker{}, reg, 3, time.Millisecond, make(chan struct{}, 1))
}

// --- Tests ---

func TestProcessJobTableDriven(t *testing.T) {
	handlerErr := errors.New("handler boom")

	testCases := []struct {
		name       string
		job        domain.Job
		retryCount int
		handler    registry.JobHandler
		msgSetup   func(msg *MockMessage)
		assertions func(t *testing.T, msg *MockMessage, handled *int)
	}{
		{
			name: "Success",
			job:  sampleJob("notifications", "order_shipped"),
			handler: func(_ context.Context, _ domain.Job) error {
				return nil
			},
			msgSetup: func(msg *MockMessage) {
				msg.On("Ack", mock.Anything).Return(nil)
			},
			assertions: func(t *testing.T, msg *MockMessage, handled *int) {
				msg.AssertCalled(t, "Ack", mock.Anything)
				msg.AssertNotCalled(t, "Retry", mock.Anything, mock.Anything)
				msg.AssertNotCalled(t, "MoveToDLQ", mock.Anything, mock.Anything)
				require.Equal(t, 1, *handled)
			},
		},
		{
			name: "HandlerErrorSchedulesRetry",
			job:  sampleJob("notifications", "order_shipped"),
			handler: func(_ context.Context, _ domain.Job) error {
				return handlerErr
			},
			msgSetup: func(msg *MockMessage) {
				msg.On("Retry", mock.Anything, mock.Anything).Return(nil)
			},
			assertions: func(t *testing.T, msg *MockMessage, handled *int) {
				msg.AssertCalled(t, "Retry", mock.Anything, mock.Anything)
				msg.AssertNotCalled(t, "Ack", mock.Anything)
				msg.AssertNotCalled(t, "MoveToDLQ", mock.Anything, mock.Anything)
			},
		},
		{
			name:       "MaxRetriesReachedMovesToDLQ",
			job:        sampleJob("notifications", "order_shipped"),
			retryCount: 2, // attempt 3 of 3
			handler: func(_ context.Context, _ domain.Job) error {
				return handlerErr
			},
			msgSetup: func(msg *MockMessage) {
				msg.On("MoveToDLQ", mock.Anything, mock.Anything).Return(nil)
			},
			assertions: func(t *testing.T, msg *MockMessage, handled *int) {
				msg.AssertCalled(t, "MoveToDLQ", mock.Anything, mock.Anything)
				msg.AssertNotCalled(t, "Retry", mock.Anything, mock.Anything)
				msg.AssertNotCalled(t, "Ack", mock.Anything)
			},
		},
		{
			name: "RetryFailureFallsBackToDLQ",
			job:  sampleJob("notifications", "order_shipped"),
			handler: func(_ context.Context, _ domain.Job) error {
				return handlerErr
			},
			msgSetup: func(msg *MockMessage) {
				msg.On("Retry", mock.Anything, mock.Anything).Return(errors.New("retry topic unavailable"))
				msg.On("MoveToDLQ", mock.Anything, mock.Anything).Return(nil)
			},
			assertions: func(t *testing.T, msg *MockMessage, handled *int) {
				msg.AssertCalled(t, "Retry", mock.Anything, mock.Anything)
				msg.AssertCalled(t, "MoveToDLQ", mock.Anything, mock.Anything)
			},
		},
		{
			name: "UnroutableJobMovesToDLQ",
			job:  sampleJob("notifications", "unregistered_job"),
			handler: func(_ context.Context, _ domain.Job) error {
				return nil
			},
			msgSetup: func(msg *MockMessage) {
				msg.On("MoveToDLQ", mock.Anything, mock.Anything).Return(nil)
			},
			assertions: func(t *testing.T, msg *MockMessage, handled *int) {
				msg.AssertCalled(t, "MoveToDLQ", mock.Anything, mock.Anything)
				msg.AssertNotCalled(t, "Ack", mock.Anything)
				require.Equal(t, 0, *handled)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handled := 0
			reg := registry.NewQueueRegistry()
			require.NoError(t, reg.Register("notifications", "order_shipped", func(ctx context.Context, job domain.Job) error {
				handled++
				return tc.handler(ctx, job)
			}))

			msg := &MockMessage{data: tc.job, retryCount: tc.retryCount}
			tc.msgSetup(msg)

			c := newTestConsumer(t, reg)
			c.processJob(context.Background(), msg)

			tc.assertions(t, msg, &handled)
		})
	}
}

func TestProcessJobPanicMovesToDLQ(t *testing.T) {
	reg := registry.NewQueueRegistry()
	require.NoError(t, reg.Register("notifications", "order_shipped", func(_ context.Context, _ domain.Job) error {
		panic("handler exploded")
	}))

	msg := &MockMessage{data: sampleJob("notifications", "order_shipped")}
	msg.On("MoveToDLQ", mock.Anything, mock.Anything).Return(nil)

	c := newTestConsumer(t, reg)
	require.NotPanics(t, func() {
		c.processJob(context.Background(), msg)
	})

	msg.AssertCalled(t, "MoveToDLQ", mock.Anything, mock.Anything)
}

func TestProcessJobAckFailureDoesNotRetry(t *testing.T) {
	reg := registry.NewQueueRegistry()
	require.NoError(t, reg.Register("notifications", "order_shipped", func(_ context.Context, _ domain.Job) error {
		return nil
	}))

	msg := &MockMessage{data: sampleJob("notifications", "order_shipped")}
	msg.On("Ack", mock.Anything).Return(errors.New("commit failed"))

	c := newTestConsumer(t, reg)
	c.processJob(context.Background(), msg)

	msg.AssertCalled(t, "Ack", mock.Anything)
	msg.AssertNotCalled(t, "Retry", mock.Anything, mock.Anything)
	msg.AssertNotCalled(t, "MoveToDLQ", mock.Anything, mock.Anything)
}

func TestRunDelegatesToBroker(t *testing.T) {
	mockBroker := &MockMessageBroker{}
	mockBroker.On("Consume", mock.Anything, mock.Anything).Return(nil)

	reg := registry.NewQueueRegistry()
	require.NoError(t, reg.Register("notifications", "order_shipped", func(_ context.Context, _ domain.Job) error {
		return nil
	}))

	c := NewConsumer(mockBroker, reg, 3, time.Millisecond, make(chan struct{}, 1))
	require.NoError(t, c.Run(context.Background()))
	mockBroker.AssertCalled(t, "Consume", mock.Anything, mock.Anything)
}
