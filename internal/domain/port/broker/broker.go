package broker

import (
	"context"
	"time"

	"github.com/bidmarket/notifier/internal/domain"
	"github.com/segmentio/kafka-go"
)

// Message represents a generic job message obtained from the broker.
// It encapsulates the job data and provides methods for lifecycle
// management (Ack, Retry, MoveToDLQ).
type Message interface {
	// Data returns the unmarshalled job.
	Data() domain.Job
	// GetRetryCount returns the current retry attempt number for the message.
	GetRetryCount() int
	// Ack acknowledges the successful processing of the message.
	Ack(ctx context.Context) error
	// Retry signals that processing failed and should be attempted again.
	// The implementation handles updating metadata (like retry count) and
	// rescheduling with a delay.
	Retry(ctx context.Context, delay time.Duration) error
	// MoveToDLQ moves the message to the Dead Letter Queue, typically after
	// exhausting retries.
	MoveToDLQ(ctx context.Context, processingError error) error
	// Headers returns the message headers (e.g., for trace propagation).
	Headers() []kafka.Header
}

// MessageBroker defines the interface for interacting with the job
// transport. The queue owns concurrency, redelivery and stalled-job
// detection; the core only consumes and publishes.
type MessageBroker interface {
	// Consume starts consuming messages from the configured topic. It
	// fetches messages, unmarshals them, wraps them in the Message
	// interface, and passes each one to consumeFunc. Errors returned by
	// consumeFunc are handled inside consumeFunc itself (Retry/MoveToDLQ).
	Consume(ctx context.Context, consumeFunc func(ctx context.Context, msg Message) error) error

	// Publish enqueues a new job.
	Publish(ctx context.Context, job domain.Job) error

	// Close terminates the connection and cleans up resources.
	Close() error
}
