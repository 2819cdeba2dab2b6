package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bidmarket/notifier/internal/domain"
)

func noopHandler(_ context.Context, _ domain.Job) error { return nil }

func TestRegisterAndLookup(t *testing.T) {
	r := NewQueueRegistry()
	require.NoError(t, r.Register("notifications", "order_shipped", noopHandler))

	handler, err := r.Lookup("notifications", "order_shipped")
	require.NoError(t, err)
	assert.NotNil(t, handler)
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewQueueRegistry()
	require.NoError(t, r.Register("notifications", "order_shipped", noopHandler))

	err := r.Register("notifications", "order_shipped", noopHandler)
	assert.Error(t, err)
}

func TestRegisterNilHandler(t *testing.T) {
	r := NewQueueRegistry()
	assert.Error(t, r.Register("notifications", "order_shipped", nil))
}

func TestLookupUnknown(t *testing.T) {
	r := NewQueueRegistry()
	require.NoError(t, r.Register("notifications", "order_shipped", noopHandler))

	_, err := r.Lookup("notifications", "order_delivered")
	assert.Error(t, err)

	_, err = r.Lookup("bulk", "order_shipped")
	assert.Error(t, err)
}

func TestQueues(t *testing.T) {
	r := NewQueueRegistry()
	require.NoError(t, r.Register("notifications", "order_shipped", noopHandler))
	require.NoError(t, r.Register("notifications", "chat_message", noopHandler))
	require.NoError(t, r.Register("bulk", "bulk_email", noopHandler))

	queues := r.Queues()
	assert.ElementsMatch(t, []string{"notifications", "bulk"}, queues)
}
