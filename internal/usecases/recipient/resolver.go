// Package recipient loads a user's contact endpoints and ban status and
// resolves which delivery endpoints a dispatch may use.
package recipient

import (
	"context"
	"errors"
	"fmt"

	"github.com/bidmarket/notifier/internal/domain"
	"github.com/bidmarket/notifier/internal/domain/port/store"
	"github.com/bidmarket/notifier/internal/usecases/preference"
	"github.com/bidmarket/notifier/pkg/logger"
	"go.uber.org/zap"
)

// ErrAllRecipientsNotFound is the hard failure raised when every requested
// user id fails to resolve. Individual misses are non-fatal.
var ErrAllRecipientsNotFound = errors.New("none of the requested recipients could be resolved")

// Query carries the dispatch-level inputs that shape one resolution.
type Query struct {
	// Requested is the set of channels the dispatch asks for.
	Requested domain.ChannelSet
	// Category is the resolved category, nil for uncategorized dispatches.
	Category *domain.Category
	// BanRelated dispatches reach banned recipients.
	BanRelated bool
	// Important bypasses the SMS inclusion decision, not ban suppression.
	Important bool
}

// Resolution is one recipient's resolved eligibility and endpoints.
// Endpoints are only populated for channels that are both requested and
// eligible.
type Resolution struct {
	UserID string
	// Suppressed is set when the recipient is banned and the dispatch is
	// not ban-related; every channel is skipped.
	Suppressed   bool
	EmailAddress string
	PushTokens   []string
	PhoneNumber  string
}

// Eligible reports the channels this resolution actually feeds.
func (r Resolution) Eligible() domain.ChannelSet {
	return domain.ChannelSet{
		Email: r.EmailAddress != "",
		Push:  len(r.PushTokens) > 0,
		SMS:   r.PhoneNumber != "",
	}
}

// Resolver resolves recipients against the recipient and user-choice stores.
type Resolver struct {
	recipients store.RecipientStore
	choices    store.ChoiceStore
}

func NewResolver(recipients store.RecipientStore, choices store.ChoiceStore) *Resolver {
	return &Resolver{
		recipients: recipients,
		choices:    choices,
	}
}

// Resolve loads one recipient and computes its endpoints for the query.
// A missing recipient returns store.ErrRecipientNotFound (wrapped); the
// caller decides whether the miss is fatal.
func (r *Resolver) Resolve(ctx context.Context, userID string, q Query) (*Resolution, error) {
	rec, err := r.recipients.GetRecipient(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrRecipientNotFound) {
			return nil, fmt.Errorf("recipient %s: %w", userID, store.ErrRecipientNotFound)
		}
		return nil, fmt.Errorf("loading recipient %s: %w", userID, err)
	}

	res := &Resolution{UserID: userID}

	if rec.Banned && !q.BanRelated {
		logger.L().Debug("Recipient suppressed by ban status",
			zap.String("userID", userID),
		)
		res.Suppressed = true
		return res, nil
	}

	choice, err := r.loadChoice(ctx, userID, q.Category)
	if err != nil {
		// A broken choice lookup must not silence the notification;
		// fall back to category defaults.
		logger.L().Warn("Failed to load user channel choice, using defaults",
			zap.String("userID", userID),
			zap.Error(err),
		)
		choice = nil
	}
	prefs := preference.Resolve(q.Category, choice)

	if q.Requested.Email && prefs.Email && rec.EmailAddress != "" {
		res.EmailAddress = rec.EmailAddress
	}
	if q.Requested.Push && prefs.Push {
		res.PushTokens = rec.PushTokens()
	}
	// Importance bypasses only the inclusion decision for SMS; the ban
	// suppression above still applies.
	if q.Requested.SMS && (prefs.SMS || q.Important) && rec.PhoneNumber != "" {
		res.PhoneNumber = rec.PhoneNumber
	}

	return res, nil
}

func (r *Resolver) loadChoice(ctx context.Context, userID string, category *domain.Category) (*domain.UserChoice, error) {
	if category == nil {
		return nil, nil
	}
	return r.choices.GetChoice(ctx, userID, category.ID)
}
