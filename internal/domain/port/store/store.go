package store

import (
	"context"
	"errors"

	"github.com/bidmarket/notifier/internal/domain"
)

var (
	// ErrCategoryNotFound is returned when no category exists for a name.
	ErrCategoryNotFound = errors.New("notification category not found")
	// ErrRecipientNotFound is returned when no recipient exists for an id.
	ErrRecipientNotFound = errors.New("recipient not found")
)

// CategoryStore is the read-only lookup for notification categories.
type CategoryStore interface {
	GetCategory(ctx context.Context, name string) (*domain.Category, error)
}

// ChoiceStore is the read-only lookup for a user's stored channel choice.
// A (nil, nil) return means the user has no stored choice for the category.
type ChoiceStore interface {
	GetChoice(ctx context.Context, userID string, categoryID int64) (*domain.UserChoice, error)
}

// RecipientStore loads a user's contact endpoints and ban status.
type RecipientStore interface {
	GetRecipient(ctx context.Context, userID string) (*domain.Recipient, error)
}

// InboxStore persists in-app inbox records. Upsert must be atomic per
// (UserID, Type, SenderID) key so concurrent chat dispatches to the same
// pair never duplicate or lose a record.
type InboxStore interface {
	Upsert(ctx context.Context, in domain.InboxUpsert) (*domain.InboxRecord, error)
}
