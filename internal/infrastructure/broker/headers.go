package broker

import (
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/bidmarket/notifier/pkg/logger"
)

// Constants for header keys
const (
	RetryHeader     = "x-retry-count"
	DelayHeader     = "x-retry-delay-ms"
	dlqReasonHeader = "x-dlq-reason"
)

// getRetryCount extracts the retry count from Kafka message headers.
func getRetryCount(headers []kafka.Header) int {
	for _, h := range headers {
		if h.Key == RetryHeader {
			count, err := strconv.Atoi(string(h.Value))
			if err == nil {
				return count
			}
			logger.L().Warn("Invalid retry header value",
				zap.String("headerKey", RetryHeader),
				zap.ByteString("headerValue", h.Value),
				zap.Error(err),
			)
			return 0
		}
	}
	return 0
}

// updateRetryHeader adds or updates the retry count header.
func updateRetryHeader(headers []kafka.Header, retryCount int) []kafka.Header {
	return setHeader(headers, RetryHeader, []byte(strconv.Itoa(retryCount)))
}

// updateDelayHeader adds or updates the retry delay header.
func updateDelayHeader(headers []kafka.Header, delay time.Duration) []kafka.Header {
	return setHeader(headers, DelayHeader, []byte(strconv.FormatInt(delay.Milliseconds(), 10)))
}

func setHeader(headers []kafka.Header, key string, value []byte) []kafka.Header {
	newHeaders := make([]kafka.Header, 0, len(headers)+1)
	found := false
	for _, h := range headers {
		if h.Key == key {
			newHeaders = append(newHeaders, kafka.Header{Key: key, Value: value})
			found = true
		} else {
			newHeaders = append(newHeaders, h)
		}
	}
	if !found {
		newHeaders = append(newHeaders, kafka.Header{Key: key, Value: value})
	}
	return newHeaders
}
