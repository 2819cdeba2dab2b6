package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bidmarket/notifier/internal/domain"
	"github.com/bidmarket/notifier/internal/domain/port/store"
)

type ChoiceStore struct{ db *sql.DB }

func NewChoiceStore(db *sql.DB) *ChoiceStore {
	return &ChoiceStore{db: db}
}

var _ store.ChoiceStore = (*ChoiceStore)(nil)

// GetChoice returns the user's stored channel choice for a category, or
// (nil, nil) when no row exists. Column NULLs map to nil pointer fields,
// meaning no opinion for that channel.
func (s *ChoiceStore) GetChoice(ctx context.Context, userID string, categoryID int64) (*domain.UserChoice, error) {
	const query = `
SELECT email, push, sms
FROM channel_choices
WHERE user_id = $1 AND category_id = $2
LIMIT 1`
	var choice domain.UserChoice
	err := s.db.QueryRowContext(ctx, query, userID, categoryID).Scan(
		&choice.Email, &choice.Push, &choice.SMS,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetChoice: %w", err)
	}
	return &choice, nil
}
