package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bidmarket/notifier/internal/domain"
	"github.com/bidmarket/notifier/internal/domain/port/store"
)

type CategoryStore struct{ db *sql.DB }

func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

var _ store.CategoryStore = (*CategoryStore)(nil)

func (s *CategoryStore) GetCategory(ctx context.Context, name string) (*domain.Category, error) {
	const query = `
SELECT id, name,
       email_default, push_default, sms_default,
       email_forced, push_forced, sms_forced
FROM notification_categories
WHERE name = $1
LIMIT 1`
	var c domain.Category
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&c.ID, &c.Name,
		&c.Defaults.Email, &c.Defaults.Push, &c.Defaults.SMS,
		&c.ForceDefault.Email, &c.ForceDefault.Push, &c.ForceDefault.SMS,
	)
	if err == sql.ErrNoRows {
		return nil, store.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetCategory: %w", err)
	}
	return &c, nil
}
