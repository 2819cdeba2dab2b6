// Package memory provides in-memory store implementations for tests and
// local development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bidmarket/notifier/internal/domain"
	"github.com/bidmarket/notifier/internal/domain/port/store"
	"github.com/google/uuid"
)

// CategoryStore is a map-backed category lookup.
type CategoryStore struct {
	mu     sync.RWMutex
	byName map[string]domain.Category
}

func NewCategoryStore(categories ...domain.Category) *CategoryStore {
	s := &CategoryStore{byName: make(map[string]domain.Category, len(categories))}
	for _, c := range categories {
		s.byName[c.Name] = c
	}
	return s
}

func (s *CategoryStore) GetCategory(ctx context.Context, name string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byName[name]
	if !ok {
		return nil, store.ErrCategoryNotFound
	}
	return &c, nil
}

var _ store.CategoryStore = (*CategoryStore)(nil)

type choiceKey struct {
	userID     string
	categoryID int64
}

// ChoiceStore is a map-backed user-choice lookup.
type ChoiceStore struct {
	mu      sync.RWMutex
	choices map[choiceKey]domain.UserChoice
}

func NewChoiceStore() *ChoiceStore {
	return &ChoiceStore{choices: make(map[choiceKey]domain.UserChoice)}
}

func (s *ChoiceStore) Set(userID string, categoryID int64, choice domain.UserChoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.choices[choiceKey{userID, categoryID}] = choice
}

func (s *ChoiceStore) GetChoice(ctx context.Context, userID string, categoryID int64) (*domain.UserChoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.choices[choiceKey{userID, categoryID}]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

var _ store.ChoiceStore = (*ChoiceStore)(nil)

// RecipientStore is a map-backed recipient lookup.
type RecipientStore struct {
	mu         sync.RWMutex
	recipients map[string]domain.Recipient
}

func NewRecipientStore(recipients ...domain.Recipient) *RecipientStore {
	s := &RecipientStore{recipients: make(map[string]domain.Recipient, len(recipients))}
	for _, r := range recipients {
		s.recipients[r.UserID] = r
	}
	return s
}

func (s *RecipientStore) Add(r domain.Recipient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipients[r.UserID] = r
}

func (s *RecipientStore) GetRecipient(ctx context.Context, userID string) (*domain.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipients[userID]
	if !ok {
		return nil, store.ErrRecipientNotFound
	}
	return &r, nil
}

var _ store.RecipientStore = (*RecipientStore)(nil)

// InboxStore keeps inbox records in memory. The single mutex makes every
// upsert atomic per (user, type, sender) key, matching the store contract.
type InboxStore struct {
	mu      sync.Mutex
	records []*domain.InboxRecord
	now     func() time.Time
}

func NewInboxStore() *InboxStore {
	return &InboxStore{now: time.Now}
}

func (s *InboxStore) Upsert(ctx context.Context, in domain.InboxUpsert) (*domain.InboxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if in.DedupUnread {
		for _, r := range s.records {
			if r.Unread && r.UserID == in.UserID && r.Type == in.Type && r.SenderID == in.SenderID {
				r.Title = in.Title
				r.Body = in.Body
				r.UpdatedAt = now
				copied := *r
				return &copied, nil
			}
		}
	}

	record := &domain.InboxRecord{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Type:      in.Type,
		SenderID:  in.SenderID,
		Title:     in.Title,
		Body:      in.Body,
		Unread:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.records = append(s.records, record)
	copied := *record
	return &copied, nil
}

// Records returns copies of all records for a user, newest last.
func (s *InboxStore) Records(userID string) []domain.InboxRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.InboxRecord
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out
}

var _ store.InboxStore = (*InboxStore)(nil)
