// Package composer turns queue job payloads into dispatch requests. Each
// handler decodes its payload, renders the message from the catalog, and
// hands the result to the fan-out orchestrator or the bulk batcher.
package composer

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/bidmarket/notifier/internal/app/registry"
	"github.com/bidmarket/notifier/internal/catalog"
	"github.com/bidmarket/notifier/internal/domain"
	"github.com/bidmarket/notifier/internal/usecases/bulkemail"
	"github.com/bidmarket/notifier/pkg/logger"
)

// Queue and job names used on the wire.
const (
	QueueNotifications = "notifications"
	QueueBulk          = "bulk"

	JobOrderStatus = "order_status"
	JobChatMessage = "chat_message"
	JobBulkEmail   = "bulk_email"
)

// Dispatcher is the orchestrator seam.
type Dispatcher interface {
	Dispatch(ctx context.Context, req domain.DispatchRequest) (domain.DispatchResult, error)
}

// BulkSender is the bulk batcher seam.
type BulkSender interface {
	Send(ctx context.Context, req bulkemail.Request) (bulkemail.Summary, error)
}

type Composer struct {
	dispatcher Dispatcher
	bulk       BulkSender
	catalog    catalog.Catalog
}

func New(dispatcher Dispatcher, bulk BulkSender, cat catalog.Catalog) *Composer {
	return &Composer{dispatcher: dispatcher, bulk: bulk, catalog: cat}
}

// RegisterAll binds every handler into the registry.
func (c *Composer) RegisterAll(reg *registry.QueueRegistry) error {
	bindings := []struct {
		queue   string
		name    string
		handler registry.JobHandler
	}{
		{QueueNotifications, JobOrderStatus, c.HandleOrderStatus},
		{QueueNotifications, JobChatMessage, c.HandleChatMessage},
		{QueueBulk, JobBulkEmail, c.HandleBulkEmail},
	}
	for _, b := range bindings {
		if err := reg.Register(b.queue, b.name, b.handler); err != nil {
			return err
		}
	}
	return nil
}

// OrderStatusPayload announces an order state change to its buyer.
type OrderStatusPayload struct {
	UserID  string        `json:"user_id"`
	OrderID string        `json:"order_id"`
	Event   string        `json:"event"` // "shipped" or "delivered"
	Locale  domain.Locale `json:"locale"`
}

var orderEventKeys = map[string]catalog.MessageKey{
	"shipped":   catalog.KeyOrderShipped,
	"delivered": catalog.KeyOrderDelivered,
}

func (c *Composer) HandleOrderStatus(ctx context.Context, job domain.Job) error {
	var payload OrderStatusPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decoding order status payload: %w", err)
	}

	key, ok := orderEventKeys[payload.Event]
	if !ok {
		return fmt.Errorf("unknown order event %q", payload.Event)
	}

	subject, body, err := c.catalog.Render("order", key, payload.Locale, map[string]string{
		"OrderID": payload.OrderID,
	})
	if err != nil {
		return err
	}

	req := domain.DispatchRequest{
		Category: "order",
		Targets: []domain.Target{{
			UserID: payload.UserID,
			Push: &domain.PushContent{
				Title:    subject,
				Body:     body,
				Metadata: map[string]string{"order_id": payload.OrderID},
			},
		}},
		Email: &domain.EmailParams{
			Subject: subject,
			Body:    body,
			Locale:  payload.Locale,
		},
		Push: &domain.PushParams{InboxType: "order"},
	}
	return c.dispatch(ctx, job, req)
}

// ChatMessagePayload announces a new chat message to its recipient.
type ChatMessagePayload struct {
	SenderID    string        `json:"sender_id"`
	SenderName  string        `json:"sender_name"`
	RecipientID string        `json:"recipient_id"`
	Preview     string        `json:"preview"`
	Locale      domain.Locale `json:"locale"`
}

func (c *Composer) HandleChatMessage(ctx context.Context, job domain.Job) error {
	var payload ChatMessagePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decoding chat message payload: %w", err)
	}

	title, body, err := c.catalog.Render(domain.CategoryChat, catalog.KeyChatMessage, payload.Locale, map[string]string{
		"SenderName": payload.SenderName,
		"Preview":    payload.Preview,
	})
	if err != nil {
		return err
	}

	req := domain.DispatchRequest{
		Category: domain.CategoryChat,
		SenderID: payload.SenderID,
		Targets: []domain.Target{{
			UserID: payload.RecipientID,
			Push: &domain.PushContent{
				Title:    title,
				Body:     body,
				Metadata: map[string]string{"sender_id": payload.SenderID},
			},
		}},
		Push: &domain.PushParams{InboxType: domain.CategoryChat},
	}
	return c.dispatch(ctx, job, req)
}

// BulkEmailPayload addresses one templated announcement to a large
// recipient list.
type BulkEmailPayload struct {
	Category   string                              `json:"category"`
	Recipients []bulkemail.Recipient               `json:"recipients"`
	Content    map[domain.Locale]bulkemail.Content `json:"content"`
}

func (c *Composer) HandleBulkEmail(ctx context.Context, job domain.Job) error {
	var payload BulkEmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decoding bulk email payload: %w", err)
	}

	summary, err := c.bulk.Send(ctx, bulkemail.Request{
		Category:   payload.Category,
		Recipients: payload.Recipients,
		Content:    payload.Content,
	})
	if err != nil {
		return err
	}

	logger.L().Info("Bulk email job completed",
		zap.String("jobID", job.ID),
		zap.Int("chunks", summary.Chunks),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
	return nil
}

func (c *Composer) dispatch(ctx context.Context, job domain.Job, req domain.DispatchRequest) error {
	result, err := c.dispatcher.Dispatch(ctx, req)
	if err != nil {
		return err
	}
	if !result.Sent {
		// Every requested channel failed; let the worker retry the job.
		return fmt.Errorf("no channel delivered for job %s", job.ID)
	}
	return nil
}
