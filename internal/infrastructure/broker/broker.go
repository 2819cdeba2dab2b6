package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/bidmarket/notifier/configs"
	"github.com/bidmarket/notifier/internal/domain"
	"github.com/bidmarket/notifier/internal/domain/port/broker"
	"github.com/bidmarket/notifier/pkg/logger"
)

// KafkaBroker implements the broker.MessageBroker interface using Kafka.
type KafkaBroker struct {
	writer   *kafka.Writer
	reader   *kafka.Reader
	brokers  []string
	topic    string
	groupID  string
	dlqTopic string
	mu       sync.Mutex
}

// Config holds configuration for the KafkaBroker.
type Config struct {
	Brokers []string
}

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

// NewKafkaBroker creates a new KafkaBroker instance.
func NewKafkaBroker(cfg Config) (*KafkaBroker, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers cannot be empty")
	}

	appConfig := configs.GetConfig()
	topic := appConfig.KafkaTopic
	groupID := appConfig.KafkaGroupID
	dlqTopic := appConfig.KafkaDLQTopic

	if topic == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC must be set")
	}
	if groupID == "" {
		return nil, fmt.Errorf("KAFKA_GROUP_ID must be set")
	}
	if dlqTopic == "" {
		logger.L().Warn("KAFKA_DLQ_TOPIC is not set. Failed jobs exceeding retries will be discarded.")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: 0,    // manual commits only
	})

	logger.L().Info("Kafka Broker initialized",
		zap.String("topic", topic),
		zap.String("groupID", groupID),
		zap.String("dlqTopic", dlqTopic),
		zap.Strings("brokers", cfg.Brokers),
	)

	return &KafkaBroker{
		writer:   w,
		reader:   r,
		brokers:  cfg.Brokers,
		topic:    topic,
		groupID:  groupID,
		dlqTopic: dlqTopic,
	}, nil
}

// Publish enqueues a job on the main topic, injecting the current trace
// context into the message headers.
func (kb *KafkaBroker) Publish(ctx context.Context, job domain.Job) error {
	value, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshalling job %s: %w", job.ID, err)
	}

	var headers []kafka.Header
	propagation.TraceContext{}.Inject(ctx, otelHeaderCarrier{headers: &headers})

	msg := kafka.Message{
		Topic:   kb.topic,
		Key:     []byte(job.ID),
		Value:   value,
		Headers: headers,
		Time:    time.Now(),
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := kb.writer.WriteMessages(ctxTimeout, msg); err != nil {
		logger.L().Error("Failed to publish job",
			zap.String("jobID", job.ID),
			zap.String("queue", job.Queue),
			zap.String("jobName", job.Name),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish job: %w", err)
	}

	logger.L().Debug("Published job",
		zap.String("jobID", job.ID),
		zap.String("queue", job.Queue),
		zap.String("jobName", job.Name),
	)
	return nil
}

// Consume fetches messages from Kafka and passes them to the consumeFunc.
func (kb *KafkaBroker) Consume(
	ctx context.Context,
	consumeFunc func(ctx context.Context, msg broker.Message) error,
) error {
	logger.L().Info("Starting Kafka consumer loop",
		zap.String("topic", kb.topic),
		zap.String("groupID", kb.groupID),
	)

	for {
		message, err := kb.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || err == context.Canceled || err == context.DeadlineExceeded {
				logger.L().Info("Context cancelled, stopping consumer loop",
					zap.String("topic", kb.topic),
					zap.String("groupID", kb.groupID),
					zap.Error(err),
				)
				return nil
			}
			logger.L().Error("Error fetching message from Kafka, continuing loop",
				zap.String("topic", kb.topic),
				zap.String("groupID", kb.groupID),
				zap.Error(err),
			)
			time.Sleep(1 * time.Second) // avoid a tight loop on persistent errors
			continue
		}

		logger.L().Debug("Fetched Kafka message",
			zap.String("topic", message.Topic),
			zap.Int("partition", message.Partition),
			zap.Int64("offset", message.Offset),
			zap.ByteString("key", message.Key),
		)

		var job domain.Job
		if err := json.Unmarshal(message.Value, &job); err != nil {
			logger.L().Error("Error unmarshalling job, attempting to move to DLQ",
				zap.String("topic", message.Topic),
				zap.Int64("offset", message.Offset),
				zap.Error(err),
			)
			poisonPillMsg := &KafkaMessage{
				broker:   kb,
				kafkaMsg: message,
			}
			if dlqErr := poisonPillMsg.MoveToDLQ(ctx, fmt.Errorf("unmarshalling error: %w", err)); dlqErr != nil {
				// Offset not committed; Kafka will redeliver.
				logger.L().Error("Failed to move unmarshallable message to DLQ. Message may be reprocessed.",
					zap.Int64("offset", message.Offset),
					zap.String("topic", message.Topic),
					zap.Error(dlqErr),
				)
			}
			continue
		}

		appMsg := &KafkaMessage{
			broker:       kb,
			kafkaMsg:     message,
			unmarshalled: job,
		}

		headersCarrier := otelHeaderCarrier{headers: &message.Headers}
		processingCtx := propagation.TraceContext{}.Extract(ctx, headersCarrier)

		// consumeFunc owns Ack/Retry/MoveToDLQ; an error here means one of
		// those failed, so the offset stays uncommitted and Kafka redelivers.
		if processingErr := consumeFunc(processingCtx, appMsg); processingErr != nil {
			logger.L().Error("Error returned by consumeFunc",
				zap.Int64("offset", message.Offset),
				zap.String("topic", message.Topic),
				zap.String("jobID", appMsg.Data().ID),
				zap.Error(processingErr),
			)
		}

		if ctx.Err() != nil {
			logger.L().Info("Context cancelled during processing, stopping consumer loop",
				zap.String("topic", kb.topic),
				zap.String("groupID", kb.groupID),
			)
			return nil
		}
	}
}

// Close cleans up the Kafka reader and writer.
func (kb *KafkaBroker) Close() error {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	var readerErr, writerErr error

	logger.L().Info("Closing Kafka reader...")
	if kb.reader != nil {
		readerErr = kb.reader.Close()
		if readerErr != nil {
			logger.L().Error("Error closing Kafka reader", zap.Error(readerErr))
		}
	}

	logger.L().Info("Closing Kafka writer...")
	if kb.writer != nil {
		writerErr = kb.writer.Close()
		if writerErr != nil {
			logger.L().Error("Error closing Kafka writer", zap.Error(writerErr))
		}
	}

	if readerErr != nil || writerErr != nil {
		return fmt.Errorf("error closing Kafka resources (Reader: %v, Writer: %v)", readerErr, writerErr)
	}
	logger.L().Info("Kafka resources closed successfully.")
	return nil
}

var _ broker.MessageBroker = (*KafkaBroker)(nil)
