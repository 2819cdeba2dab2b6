package channel

import (
	"context"

	"github.com/bidmarket/notifier/internal/domain"
)

// EmailBatch is one templated subject/body broadcast to a resolved address
// list, with optional extra cc/bcc recipients.
type EmailBatch struct {
	To      []string
	CC      []string
	BCC     []string
	Subject string
	Body    string
	Locale  domain.Locale
}

// PushDelivery is one personalized message headed for all of one
// recipient's device tokens.
type PushDelivery struct {
	UserID  string
	Tokens  []string
	Content domain.PushContent
}

// PushBatch is the per-recipient payload set for one push dispatch.
type PushBatch struct {
	Deliveries []PushDelivery
}

// SMSBatch is one templated message sent individually to each number.
// Numbers may arrive in local format; the sender normalizes them.
type SMSBatch struct {
	Numbers  []string
	Message  string
	Selector domain.CarrierSelector
}

// EmailSender delivers an EmailBatch through the email provider.
// Implementations bound their own retries and return promptly; the
// orchestrator isolates a returned error from sibling channels.
type EmailSender interface {
	Send(ctx context.Context, batch EmailBatch) error
}

// PushSender delivers a PushBatch, cloning each delivery across the
// recipient's tokens and routing per token shape.
type PushSender interface {
	Send(ctx context.Context, batch PushBatch) error
}

// SMSSender delivers an SMSBatch one number at a time.
type SMSSender interface {
	Send(ctx context.Context, batch SMSBatch) error
}
