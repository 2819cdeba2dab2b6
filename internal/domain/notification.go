package domain

import "time"

// Channel identifies an independent delivery mechanism.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
)

// ChannelSet holds one boolean per delivery channel. It is used both for
// category defaults/force flags and for resolved per-user eligibility.
type ChannelSet struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

// Any reports whether at least one channel is enabled.
func (s ChannelSet) Any() bool {
	return s.Email || s.Push || s.SMS
}

// Enabled reports whether the given channel is enabled in the set.
func (s ChannelSet) Enabled(c Channel) bool {
	switch c {
	case ChannelEmail:
		return s.Email
	case ChannelPush:
		return s.Push
	case ChannelSMS:
		return s.SMS
	}
	return false
}

// Category is a named grouping of notification types sharing default channel
// preferences and override rules. ForceDefault flags win over any stored
// user choice for that channel.
type Category struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Defaults     ChannelSet `json:"defaults"`
	ForceDefault ChannelSet `json:"force_default"`
}

// CategoryChat is the category whose in-app inbox records are deduplicated
// per (recipient, sender) pair while unread.
const CategoryChat = "chat"

// UserChoice is a user's stored per-category channel opt-in/opt-out.
// A nil field means the user expressed no opinion for that channel.
type UserChoice struct {
	Email *bool `json:"email,omitempty"`
	Push  *bool `json:"push,omitempty"`
	SMS   *bool `json:"sms,omitempty"`
}

// Recipient is a user-like entity addressable via one or more channel
// endpoints. LegacyToken is only consulted when DeviceTokens is empty.
type Recipient struct {
	UserID       string   `json:"user_id"`
	EmailAddress string   `json:"email_address,omitempty"`
	DeviceTokens []string `json:"device_tokens,omitempty"`
	LegacyToken  string   `json:"legacy_token,omitempty"`
	PhoneNumber  string   `json:"phone_number,omitempty"`
	Banned       bool     `json:"banned"`
}

// PushTokens returns the tokens a push message should be cloned across:
// all registered device tokens, or the single legacy token as a fallback.
func (r Recipient) PushTokens() []string {
	if len(r.DeviceTokens) > 0 {
		return r.DeviceTokens
	}
	if r.LegacyToken != "" {
		return []string{r.LegacyToken}
	}
	return nil
}

// Locale is the two-valued content locale used by templated channels.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleKO Locale = "ko"
)

// Known reports whether the locale is one of the supported values.
func (l Locale) Known() bool {
	return l == LocaleEN || l == LocaleKO
}

// CarrierSelector picks the preferred SMS carrier ordering.
type CarrierSelector string

const (
	CarrierPrimary   CarrierSelector = "primary"
	CarrierSecondary CarrierSelector = "secondary"
)

// PushContent is the personalized payload delivered to a single recipient's
// devices. Metadata travels opaque to the delivery network.
type PushContent struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Image    string            `json:"image,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Target couples one intended recipient with that recipient's push payload.
// Correlating recipient and payload structurally (instead of two parallel
// arrays) makes the 1:1 invariant impossible to violate silently.
type Target struct {
	UserID string       `json:"user_id"`
	Push   *PushContent `json:"push,omitempty"`
}

// EmailParams are the request-level parameters for the email channel:
// one templated subject/body broadcast to every eligible address.
type EmailParams struct {
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	Locale  Locale   `json:"locale"`
	CC      []string `json:"cc,omitempty"`
	BCC     []string `json:"bcc,omitempty"`
}

// PushParams are the request-level parameters for the push channel.
// Per-recipient content lives on each Target.
type PushParams struct {
	// InboxType is the inbox record type written alongside the push
	// (e.g. "chat", "order"). Empty defaults to the category name.
	InboxType string `json:"inbox_type,omitempty"`
}

// SMSParams are the request-level parameters for the SMS channel: one
// templated message sent individually to each eligible phone number.
type SMSParams struct {
	Message  string          `json:"message"`
	Selector CarrierSelector `json:"selector,omitempty"`
}

// DispatchRequest describes one multi-channel fan-out. A channel is
// requested by setting its params pointer; at least one must be set.
type DispatchRequest struct {
	Category string `json:"category,omitempty"`
	// SenderID identifies the originating user for chat-style
	// notifications; it keys the inbox dedup rule.
	SenderID string       `json:"sender_id,omitempty"`
	Targets  []Target     `json:"targets"`
	Email    *EmailParams `json:"email,omitempty"`
	Push     *PushParams  `json:"push,omitempty"`
	SMS      *SMSParams   `json:"sms,omitempty"`
	// BanRelated marks dispatches that must reach banned recipients
	// (account suspension notices and the like).
	BanRelated bool `json:"ban_related,omitempty"`
	// Important bypasses the SMS inclusion decision (not ban suppression).
	Important bool `json:"important,omitempty"`
}

// Channels returns which channels the request asks for.
func (r DispatchRequest) Channels() ChannelSet {
	return ChannelSet{
		Email: r.Email != nil,
		Push:  r.Push != nil,
		SMS:   r.SMS != nil,
	}
}

// ChannelOutcome records what happened on one channel during a dispatch.
type ChannelOutcome struct {
	Requested  bool   `json:"requested"`
	Attempted  bool   `json:"attempted"`
	Delivered  bool   `json:"delivered"`
	Recipients int    `json:"recipients"`
	Error      string `json:"error,omitempty"`
}

// DispatchResult is the aggregate outcome of one fan-out.
type DispatchResult struct {
	Sent     bool                       `json:"sent"`
	Channels map[Channel]ChannelOutcome `json:"channels,omitempty"`
}

// InboxRecord is a persisted in-app notification entity, written on the
// push path and independent of external push delivery.
type InboxRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	SenderID  string    `json:"sender_id,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Unread    bool      `json:"unread"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InboxUpsert is the input to InboxStore.Upsert. When DedupUnread is set,
// an existing unread record for (UserID, Type, SenderID) is refreshed in
// place instead of duplicated.
type InboxUpsert struct {
	UserID      string
	Type        string
	SenderID    string
	Title       string
	Body        string
	DedupUnread bool
}
