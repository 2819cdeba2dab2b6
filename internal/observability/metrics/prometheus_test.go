package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsHandler(t *testing.T) {
	h := MetricsHandler()
	assert.NotNil(t, h)
	assert.Implements(t, (*http.Handler)(nil), h)
}

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(DispatchesDelivered.WithLabelValues("email"))
	DispatchesDelivered.WithLabelValues("email").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(DispatchesDelivered.WithLabelValues("email")))

	before = testutil.ToFloat64(JobsDLQ.WithLabelValues("notifications", "order_status"))
	JobsDLQ.WithLabelValues("notifications", "order_status").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(JobsDLQ.WithLabelValues("notifications", "order_status")))
}

func TestObserveJobDuration(t *testing.T) {
	start := time.Now().Add(-50 * time.Millisecond)

	ObserveJobDuration("notifications", "chat_message", true, start)
	ObserveJobDuration("notifications", "chat_message", false, start)

	// Both success label values should now exist for the job.
	assert.GreaterOrEqual(t, testutil.CollectAndCount(JobDuration,
		"notifier_job_processing_duration_seconds"), 2)
}
