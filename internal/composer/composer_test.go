package composer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bidmarket/notifier/internal/app/registry"
	"github.com/bidmarket/notifier/internal/catalog"
	"github.com/bidmarket/notifier/internal/domain"
	"github.com/bidmarket/notifier/internal/usecases/bulkemail"
)

type fakeDispatcher struct {
	requests []domain.DispatchRequest
	result   domain.DispatchResult
	err      error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req domain.DispatchRequest) (domain.DispatchResult, error) {
	f.requests = append(f.requests, req)
	return f.result, f.err
}

type fakeBulk struct {
	requests []bulkemail.Request
	summary  bulkemail.Summary
	err      error
}

func (f *fakeBulk) Send(_ context.Context, req bulkemail.Request) (bulkemail.Summary, error) {
	f.requests = append(f.requests, req)
	return f.summary, f.err
}

func newComposer(dispatcher *fakeDispatcher, bulk *fakeBulk) *Composer {
	return New(dispatcher, bulk, catalog.Default())
}

func jobWith(t *testing.T, name string, payload any) domain.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return domain.Job{ID: "job-1", Queue: QueueNotifications, Name: name, Payload: raw}
}

func TestHandleOrderStatus(t *testing.T) {
	dispatcher := &fakeDispatcher{result: domain.DispatchResult{Sent: true}}
	c := newComposer(dispatcher, &fakeBulk{})

	job := jobWith(t, JobOrderStatus, OrderStatusPayload{
		UserID:  "user-1",
		OrderID: "ord-42",
		Event:   "shipped",
		Locale:  domain.LocaleEN,
	})
	require.NoError(t, c.HandleOrderStatus(context.Background(), job))

	require.Len(t, dispatcher.requests, 1)
	req := dispatcher.requests[0]
	assert.Equal(t, "order", req.Category)
	require.Len(t, req.Targets, 1)
	assert.Equal(t, "user-1", req.Targets[0].UserID)
	require.NotNil(t, req.Targets[0].Push)
	assert.Equal(t, "Your order ord-42 has shipped", req.Targets[0].Push.Title)
	require.NotNil(t, req.Email)
	assert.Equal(t, "Your order ord-42 has shipped", req.Email.Subject)
	assert.Equal(t, domain.LocaleEN, req.Email.Locale)
}

func TestHandleOrderStatusUnknownEvent(t *testing.T) {
	dispatcher := &fakeDispatcher{result: domain.DispatchResult{Sent: true}}
	c := newComposer(dispatcher, &fakeBulk{})

	job := jobWith(t, JobOrderStatus, OrderStatusPayload{
		UserID: "user-1", OrderID: "ord-42", Event: "teleported", Locale: domain.LocaleEN,
	})
	require.Error(t, c.HandleOrderStatus(context.Background(), job))
	assert.Empty(t, dispatcher.requests)
}

func TestHandleOrderStatusMalformedPayload(t *testing.T) {
	c := newComposer(&fakeDispatcher{}, &fakeBulk{})
	job := domain.Job{ID: "job-1", Name: JobOrderStatus, Payload: json.RawMessage(`{broken`)}
	require.Error(t, c.HandleOrderStatus(context.Background(), job))
}

func TestHandleChatMessage(t *testing.T) {
	dispatcher := &fakeDispatcher{result: domain.DispatchResult{Sent: true}}
	c := newComposer(dispatcher, &fakeBulk{})

	job := jobWith(t, JobChatMessage, ChatMessagePayload{
		SenderID:    "user-2",
		SenderName:  "Dana",
		RecipientID: "user-1",
		Preview:     "is this still available?",
		Locale:      domain.LocaleEN,
	})
	require.NoError(t, c.HandleChatMessage(context.Background(), job))

	require.Len(t, dispatcher.requests, 1)
	req := dispatcher.requests[0]
	assert.Equal(t, domain.CategoryChat, req.Category)
	assert.Equal(t, "user-2", req.SenderID)
	require.NotNil(t, req.Push)
	assert.Equal(t, domain.CategoryChat, req.Push.InboxType)
	assert.Nil(t, req.Email)
	require.Len(t, req.Targets, 1)
	assert.Equal(t, "New message from Dana", req.Targets[0].Push.Title)
	assert.Equal(t, "is this still available?", req.Targets[0].Push.Body)
}

func TestHandleBulkEmail(t *testing.T) {
	bulk := &fakeBulk{summary: bulkemail.Summary{Chunks: 2}}
	c := newComposer(&fakeDispatcher{}, bulk)

	job := jobWith(t, JobBulkEmail, BulkEmailPayload{
		Category: "announcement",
		Recipients: []bulkemail.Recipient{
			{UserID: "user-1", Locale: domain.LocaleEN},
			{UserID: "user-2", Locale: domain.LocaleKO},
		},
		Content: map[domain.Locale]bulkemail.Content{
			domain.LocaleEN: {Subject: "Fee change", Body: "..."},
			domain.LocaleKO: {Subject: "수수료 변경", Body: "..."},
		},
	})
	require.NoError(t, c.HandleBulkEmail(context.Background(), job))

	require.Len(t, bulk.requests, 1)
	assert.Equal(t, "announcement", bulk.requests[0].Category)
	assert.Len(t, bulk.requests[0].Recipients, 2)
}

func TestDispatchAllChannelsFailedReturnsError(t *testing.T) {
	dispatcher := &fakeDispatcher{result: domain.DispatchResult{Sent: false}}
	c := newComposer(dispatcher, &fakeBulk{})

	job := jobWith(t, JobOrderStatus, OrderStatusPayload{
		UserID: "user-1", OrderID: "ord-42", Event: "shipped", Locale: domain.LocaleEN,
	})
	require.Error(t, c.HandleOrderStatus(context.Background(), job))
}

func TestDispatchHardErrorPropagates(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("all recipients not found")}
	c := newComposer(dispatcher, &fakeBulk{})

	job := jobWith(t, JobChatMessage, ChatMessagePayload{
		SenderID: "user-2", SenderName: "Dana", RecipientID: "ghost", Locale: domain.LocaleEN,
	})
	require.Error(t, c.HandleChatMessage(context.Background(), job))
}

func TestRegisterAll(t *testing.T) {
	c := newComposer(&fakeDispatcher{}, &fakeBulk{})
	reg := registry.NewQueueRegistry()
	require.NoError(t, c.RegisterAll(reg))

	for _, pair := range [][2]string{
		{QueueNotifications, JobOrderStatus},
		{QueueNotifications, JobChatMessage},
		{QueueBulk, JobBulkEmail},
	} {
		handler, err := reg.Lookup(pair[0], pair[1])
		require.NoError(t, err)
		assert.NotNil(t, handler)
	}
}
