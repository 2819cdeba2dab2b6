package broker

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestGetRetryCount(t *testing.T) {
	assert.Equal(t, 0, getRetryCount(nil))
	assert.Equal(t, 0, getRetryCount([]kafka.Header{{Key: "other", Value: []byte("1")}}))
	assert.Equal(t, 2, getRetryCount([]kafka.Header{{Key: RetryHeader, Value: []byte("2")}}))
	assert.Equal(t, 0, getRetryCount([]kafka.Header{{Key: RetryHeader, Value: []byte("junk")}}))
}

func TestUpdateRetryHeader(t *testing.T) {
	headers := []kafka.Header{
		{Key: "traceparent", Value: []byte("00-abc")},
		{Key: RetryHeader, Value: []byte("1")},
	}

	updated := updateRetryHeader(headers, 2)
	assert.Equal(t, 2, getRetryCount(updated))
	assert.Len(t, updated, 2)

	// Missing header gets appended.
	updated = updateRetryHeader([]kafka.Header{{Key: "traceparent", Value: []byte("00-abc")}}, 1)
	assert.Equal(t, 1, getRetryCount(updated))
	assert.Len(t, updated, 2)
}

func TestUpdateDelayHeader(t *testing.T) {
	updated := updateDelayHeader(nil, 1500*time.Millisecond)
	assert.Equal(t, []kafka.Header{{Key: DelayHeader, Value: []byte("1500")}}, updated)
}
