package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/bidmarket/notifier/internal/domain"
	"github.com/bidmarket/notifier/pkg/logger"
)

// KafkaMessage wraps a kafka-go message and implements the broker.Message interface.
type KafkaMessage struct {
	broker       *KafkaBroker
	kafkaMsg     kafka.Message
	unmarshalled domain.Job
}

// Data returns the unmarshalled job.
func (m *KafkaMessage) Data() domain.Job {
	return m.unmarshalled
}

// Headers returns the raw Kafka headers.
func (m *KafkaMessage) Headers() []kafka.Header {
	return m.kafkaMsg.Headers
}

// GetRetryCount extracts the retry count from the message headers.
func (m *KafkaMessage) GetRetryCount() int {
	return getRetryCount(m.kafkaMsg.Headers)
}

// Ack commits the offset for the current message.
func (m *KafkaMessage) Ack(ctx context.Context) error {
	traceID := logger.TraceIDFromContext(ctx)
	logger.L().Debug("Acknowledging Kafka message (committing offset)",
		zap.Int64("offset", m.kafkaMsg.Offset),
		zap.String("topic", m.kafkaMsg.Topic),
		zap.String("jobID", m.Data().ID),
		zap.String("traceID", traceID),
	)
	err := m.broker.reader.CommitMessages(ctx, m.kafkaMsg)
	if err != nil {
		logger.L().Error("Failed to commit Kafka message offset",
			zap.Int64("offset", m.kafkaMsg.Offset),
			zap.String("topic", m.kafkaMsg.Topic),
			zap.String("jobID", m.Data().ID),
			zap.String("traceID", traceID),
			zap.Error(err),
		)
	}
	return err
}

// Retry publishes the message back to the main topic with an incremented
// retry count and the requested delay recorded in a header. Republishing is
// immediate; the delay header lets the consumer side defer processing.
func (m *KafkaMessage) Retry(ctx context.Context, delay time.Duration) error {
	traceID := logger.TraceIDFromContext(ctx)
	nextRetryCount := m.GetRetryCount() + 1

	logger.L().Info("Preparing job for retry",
		zap.Int64("offset", m.kafkaMsg.Offset),
		zap.String("topic", m.kafkaMsg.Topic),
		zap.String("jobID", m.Data().ID),
		zap.Int("nextRetryCount", nextRetryCount),
		zap.Duration("requestedDelay", delay),
		zap.String("traceID", traceID),
	)

	newHeaders := updateRetryHeader(m.kafkaMsg.Headers, nextRetryCount)
	newHeaders = updateDelayHeader(newHeaders, delay)
	propagation.TraceContext{}.Inject(ctx, otelHeaderCarrier{headers: &newHeaders})

	retryMsg := kafka.Message{
		Topic:   m.kafkaMsg.Topic,
		Key:     m.kafkaMsg.Key,
		Value:   m.kafkaMsg.Value,
		Headers: newHeaders,
		Time:    time.Now(),
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.broker.writer.WriteMessages(ctxTimeout, retryMsg); err != nil {
		logger.L().Error("Failed to publish retry message",
			zap.String("jobID", m.Data().ID),
			zap.String("traceID", traceID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish retry message: %w", err)
	}

	if ackErr := m.Ack(ctx); ackErr != nil {
		logger.L().Error("Failed to Ack original message after publishing retry",
			zap.Int64("originalOffset", m.kafkaMsg.Offset),
			zap.String("jobID", m.Data().ID),
			zap.String("traceID", traceID),
			zap.Error(ackErr),
		)
		return fmt.Errorf("failed to ack original message after retry: %w", ackErr)
	}

	logger.L().Info("Retry message published and original message acknowledged",
		zap.String("jobID", m.Data().ID),
		zap.Int("nextRetryCount", nextRetryCount),
		zap.String("traceID", traceID),
	)
	return nil
}

// MoveToDLQ publishes the message to the configured DLQ topic.
func (m *KafkaMessage) MoveToDLQ(ctx context.Context, processingError error) error {
	traceID := logger.TraceIDFromContext(ctx)
	currentAttempt := m.GetRetryCount()

	if m.broker.dlqTopic == "" {
		logger.L().Warn("DLQ topic not configured. Discarding job.",
			zap.String("jobID", m.Data().ID),
			zap.Error(processingError),
			zap.String("traceID", traceID),
		)
		return m.Ack(ctx) // remove from original topic
	}

	logger.L().Warn("Moving job to DLQ",
		zap.String("jobID", m.Data().ID),
		zap.String("dlqTopic", m.broker.dlqTopic),
		zap.Int("attempt", currentAttempt),
		zap.String("traceID", traceID),
		zap.Error(processingError),
	)

	dlqHeaders := make([]kafka.Header, 0, len(m.kafkaMsg.Headers)+2)
	dlqHeaders = append(dlqHeaders, m.kafkaMsg.Headers...)
	dlqHeaders = append(dlqHeaders, kafka.Header{Key: dlqReasonHeader, Value: []byte(processingError.Error())})
	dlqHeaders = updateRetryHeader(dlqHeaders, currentAttempt)

	propagation.TraceContext{}.Inject(ctx, otelHeaderCarrier{headers: &dlqHeaders})

	dlqMsg := kafka.Message{
		Topic:   m.broker.dlqTopic,
		Key:     m.kafkaMsg.Key,
		Value:   m.kafkaMsg.Value,
		Headers: dlqHeaders,
		Time:    time.Now(),
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.broker.writer.WriteMessages(ctxTimeout, dlqMsg); err != nil {
		logger.L().Error("Failed to publish message to DLQ",
			zap.String("jobID", m.Data().ID),
			zap.String("dlqTopic", m.broker.dlqTopic),
			zap.String("traceID", traceID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish message to DLQ: %w", err)
	}

	if ackErr := m.Ack(ctx); ackErr != nil {
		logger.L().Error("Failed to Ack original message after publishing to DLQ",
			zap.Int64("originalOffset", m.kafkaMsg.Offset),
			zap.String("jobID", m.Data().ID),
			zap.String("traceID", traceID),
			zap.Error(ackErr),
		)
		return fmt.Errorf("failed to ack original message after DLQ: %w", ackErr)
	}

	logger.L().Info("Message published to DLQ and original message acknowledged",
		zap.String("jobID", m.Data().ID),
		zap.String("dlqTopic", m.broker.dlqTopic),
		zap.String("traceID", traceID),
	)
	return nil
}
