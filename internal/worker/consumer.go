// Package worker consumes jobs from the broker and routes them to registered
// handlers. Processing is concurrent up to a semaphore-bounded pool; handler
// failures go through exponential-backoff retries and end in the DLQ.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bidmarket/notifier/internal/app/registry"
	"github.com/bidmarket/notifier/internal/domain/port/broker"
	"github.com/bidmarket/notifier/internal/observability/metrics"
	"github.com/bidmarket/notifier/internal/observability/tracing"
	"github.com/bidmarket/notifier/pkg/backoff"
	"github.com/bidmarket/notifier/pkg/logger"
)

const DefaultMaxRetries = 3

// otelHeaderCarrier adapts kafka-go headers to OpenTelemetry's TextMapCarrier.
type otelHeaderCarrier struct {
	headers *[]kafka.Header
}

func (c otelHeaderCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c otelHeaderCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c otelHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

type Consumer struct {
	messageBroker broker.MessageBroker
	registry      *registry.QueueRegistry
	maxRetries    int
	baseDelay     time.Duration
	semaphore     chan struct{}
}

func NewConsumer(
	messageBroker broker.MessageBroker,
	reg *registry.QueueRegistry,
	maxRetries int,
	baseDelay time.Duration,
	semaphore chan struct{},
) *Consumer {
	if maxRetries <= 0 {
		logger.L().Warn("Invalid maxRetries provided, defaulting",
			zap.Int("providedMaxRetries", maxRetries),
			zap.Int("defaultMaxRetries", DefaultMaxRetries),
		)
		maxRetries = DefaultMaxRetries
	}
	if len(reg.Queues()) == 0 {
		logger.L().Warn("No job handlers registered; every job will be routed to the DLQ.")
	}
	return &Consumer{
		messageBroker: messageBroker,
		registry:      reg,
		maxRetries:    maxRetries,
		baseDelay:     baseDelay,
		semaphore:     semaphore,
	}
}

// Run consumes until ctx is cancelled. Each message is processed in its own
// goroutine; the semaphore bounds how many run at once.
func (c *Consumer) Run(ctx context.Context) error {
	consumeFunc := func(ctx context.Context, msg broker.Message) error {
		c.semaphore <- struct{}{}

		headers := msg.Headers()
		carrier := otelHeaderCarrier{headers: &headers}
		parentCtx := propagation.TraceContext{}.Extract(ctx, carrier)

		consumerCtx, span := tracing.Tracer.Start(parentCtx, "Worker.processJob",
			trace.WithSpanKind(trace.SpanKindConsumer))

		go func(processingCtx context.Context, message broker.Message) {
			defer span.End()
			defer func() {
				<-c.semaphore
			}()
			c.processJob(processingCtx, message)
		}(consumerCtx, msg)

		// Ack/Retry/DLQ is decided inside the goroutine.
		return nil
	}

	logger.L().Info("Worker starting consumption...")
	return c.messageBroker.Consume(ctx, consumeFunc)
}

func (c *Consumer) processJob(ctx context.Context, msg broker.Message) {
	traceID := logger.TraceIDFromContext(ctx)
	job := msg.Data()

	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("CRITICAL: Panic recovered in processJob",
				zap.Any("panicValue", r),
				zap.String("stacktrace", string(debug.Stack())),
				zap.String("jobID", job.ID),
				zap.String("queue", job.Queue),
				zap.String("jobName", job.Name),
				zap.String("traceID", traceID),
			)
			// DLQ after a panic rather than retrying: the handler state is unknown.
			panicErr := fmt.Errorf("panic recovered: %v", r)
			if dlqErr := msg.MoveToDLQ(context.Background(), panicErr); dlqErr != nil {
				logger.L().Error("Failed to move job to DLQ after panic",
					zap.String("jobID", job.ID),
					zap.String("traceID", traceID),
					zap.Error(dlqErr),
				)
			}
			metrics.JobsDLQ.WithLabelValues(job.Queue, job.Name).Inc()
		}
	}()

	startTime := time.Now()
	currentAttempt := msg.GetRetryCount() + 1

	logger.L().Info("Processing job",
		zap.String("jobID", job.ID),
		zap.String("queue", job.Queue),
		zap.String("jobName", job.Name),
		zap.Int("attempt", currentAttempt),
		zap.Int("maxRetries", c.maxRetries),
		zap.String("traceID", traceID),
	)

	handler, lookupErr := c.registry.Lookup(job.Queue, job.Name)
	if lookupErr != nil {
		// No handler means no amount of retrying will help.
		logger.L().Warn("No handler for job, moving to DLQ",
			zap.String("jobID", job.ID),
			zap.String("queue", job.Queue),
			zap.String("jobName", job.Name),
			zap.String("traceID", traceID),
			zap.Error(lookupErr),
		)
		if dlqErr := msg.MoveToDLQ(ctx, lookupErr); dlqErr != nil {
			logger.L().Error("Error moving unroutable job to DLQ",
				zap.String("jobID", job.ID),
				zap.String("traceID", traceID),
				zap.Error(dlqErr),
			)
		}
		metrics.JobsFailed.WithLabelValues(job.Queue, job.Name).Inc()
		metrics.JobsDLQ.WithLabelValues(job.Queue, job.Name).Inc()
		metrics.ObserveJobDuration(job.Queue, job.Name, false, startTime)
		return
	}

	handleErr := handler(ctx, job)
	if handleErr != nil {
		if currentAttempt == 1 {
			metrics.JobsFailed.WithLabelValues(job.Queue, job.Name).Inc()
		}
		metrics.ObserveJobDuration(job.Queue, job.Name, false, startTime)
		c.handleJobError(ctx, msg, handleErr, currentAttempt)
		return
	}

	logger.L().Info("Successfully processed job, acknowledging",
		zap.String("jobID", job.ID),
		zap.String("queue", job.Queue),
		zap.String("jobName", job.Name),
		zap.Int("attempt", currentAttempt),
		zap.String("traceID", traceID),
	)
	if ackErr := msg.Ack(ctx); ackErr != nil {
		// The broker may redeliver; do not count this as processed.
		logger.L().Error("Error acknowledging job after successful processing",
			zap.String("jobID", job.ID),
			zap.String("queue", job.Queue),
			zap.String("jobName", job.Name),
			zap.String("traceID", traceID),
			zap.Error(ackErr),
		)
		metrics.ObserveJobDuration(job.Queue, job.Name, true, startTime)
		return
	}

	metrics.JobsProcessed.WithLabelValues(job.Queue, job.Name).Inc()
	metrics.ObserveJobDuration(job.Queue, job.Name, true, startTime)
}

func (c *Consumer) handleJobError(ctx context.Context, msg broker.Message, handleErr error, currentAttempt int) {
	traceID := logger.TraceIDFromContext(ctx)
	job := msg.Data()

	logger.L().Error("Error processing job",
		zap.String("jobID", job.ID),
		zap.String("queue", job.Queue),
		zap.String("jobName", job.Name),
		zap.Int("attempt", currentAttempt),
		zap.Int("maxRetries", c.maxRetries),
		zap.String("traceID", traceID),
		zap.Error(handleErr),
	)

	if currentAttempt < c.maxRetries {
		backoffDuration := backoff.CalculateRetryDelay(currentAttempt+1, c.baseDelay)
		logger.L().Info("Scheduling retry",
			zap.String("jobID", job.ID),
			zap.String("queue", job.Queue),
			zap.String("jobName", job.Name),
			zap.Int("attempt", currentAttempt+1),
			zap.Duration("backoffDuration", backoffDuration),
			zap.String("traceID", traceID),
		)

		retryErr := msg.Retry(ctx, backoffDuration)
		if retryErr == nil {
			metrics.JobsRetried.WithLabelValues(job.Queue, job.Name).Inc()
			return
		}

		logger.L().Error("Failed to schedule retry, moving to DLQ",
			zap.String("jobID", job.ID),
			zap.String("queue", job.Queue),
			zap.String("jobName", job.Name),
			zap.String("traceID", traceID),
			zap.Error(retryErr),
			zap.NamedError("originalError", handleErr),
		)
		metrics.JobsDLQ.WithLabelValues(job.Queue, job.Name).Inc()
		dlqErr := msg.MoveToDLQ(ctx, fmt.Errorf("failed to schedule retry: %w; original error: %w", retryErr, handleErr))
		if dlqErr != nil {
			logger.L().Error("Critical: Failed to move job to DLQ after retry failure",
				zap.String("jobID", job.ID),
				zap.String("traceID", traceID),
				zap.Error(dlqErr),
			)
		}
		return
	}

	logger.L().Warn("Max retries reached, moving job to DLQ",
		zap.String("jobID", job.ID),
		zap.String("queue", job.Queue),
		zap.String("jobName", job.Name),
		zap.Int("maxRetries", c.maxRetries),
		zap.String("traceID", traceID),
		zap.Error(handleErr),
	)
	metrics.JobsDLQ.WithLabelValues(job.Queue, job.Name).Inc()
	dlqErr := msg.MoveToDLQ(ctx, fmt.Errorf("max retries (%d) reached; final error: %w", c.maxRetries, handleErr))
	if dlqErr != nil {
		logger.L().Error("Failed to move job to DLQ after max retries",
			zap.String("jobID", job.ID),
			zap.String("traceID", traceID),
			zap.Error(dlqErr),
		)
	}
}
