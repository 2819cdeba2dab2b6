package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bidmarket/notifier/internal/domain"
	"github.com/bidmarket/notifier/internal/domain/port/store"
)

type RecipientStore struct{ db *sql.DB }

func NewRecipientStore(db *sql.DB) *RecipientStore {
	return &RecipientStore{db: db}
}

var _ store.RecipientStore = (*RecipientStore)(nil)

func (s *RecipientStore) GetRecipient(ctx context.Context, userID string) (*domain.Recipient, error) {
	const query = `
SELECT user_id, COALESCE(email_address, ''), device_tokens,
       COALESCE(legacy_token, ''), COALESCE(phone_number, ''), banned
FROM recipients
WHERE user_id = $1
LIMIT 1`
	var r domain.Recipient
	var deviceTokensJSON []byte
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&r.UserID, &r.EmailAddress, &deviceTokensJSON,
		&r.LegacyToken, &r.PhoneNumber, &r.Banned,
	)
	if err == sql.ErrNoRows {
		return nil, store.ErrRecipientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetRecipient: %w", err)
	}

	// device_tokens is a jsonb array column.
	if len(deviceTokensJSON) > 0 {
		if err := json.Unmarshal(deviceTokensJSON, &r.DeviceTokens); err != nil {
			return nil, fmt.Errorf("GetRecipient: unmarshal device_tokens: %w", err)
		}
	}
	return &r, nil
}
