package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/bidmarket/notifier/internal/domain"
	"github.com/bidmarket/notifier/internal/domain/port/store"
)

type InboxStore struct{ db *sql.DB }

func NewInboxStore(db *sql.DB) *InboxStore {
	return &InboxStore{db: db}
}

var _ store.InboxStore = (*InboxStore)(nil)

// insertQuery always creates a new record.
const insertQuery = `
INSERT INTO inbox_records (id, user_id, type, sender_id, title, body, unread, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, TRUE, now(), now())
RETURNING id, user_id, type, sender_id, title, body, unread, created_at, updated_at`

// dedupQuery relies on the partial unique index on (user_id, type,
// sender_id) WHERE unread, so the refresh-or-create decision is a single
// atomic statement even under concurrent dispatches.
const dedupQuery = `
INSERT INTO inbox_records (id, user_id, type, sender_id, title, body, unread, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, TRUE, now(), now())
ON CONFLICT (user_id, type, sender_id) WHERE unread
DO UPDATE SET title = EXCLUDED.title, body = EXCLUDED.body, updated_at = now()
RETURNING id, user_id, type, sender_id, title, body, unread, created_at, updated_at`

func (s *InboxStore) Upsert(ctx context.Context, in domain.InboxUpsert) (*domain.InboxRecord, error) {
	query := insertQuery
	if in.DedupUnread {
		query = dedupQuery
	}

	var rec domain.InboxRecord
	err := s.db.QueryRowContext(ctx, query,
		uuid.NewString(), in.UserID, in.Type, in.SenderID, in.Title, in.Body,
	).Scan(
		&rec.ID, &rec.UserID, &rec.Type, &rec.SenderID,
		&rec.Title, &rec.Body, &rec.Unread, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		// RETURNING always yields a row for INSERT ... DO UPDATE.
		return nil, fmt.Errorf("Upsert: unexpected empty result")
	}
	if err != nil {
		return nil, fmt.Errorf("Upsert: %w", err)
	}
	return &rec, nil
}
