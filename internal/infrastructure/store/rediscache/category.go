// Package rediscache adds a read-through Redis cache in front of the
// category store. Category rows change rarely but are read on every
// dispatch, so a short TTL removes most database round-trips.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bidmarket/notifier/internal/domain"
	"github.com/bidmarket/notifier/internal/domain/port/store"
	"github.com/bidmarket/notifier/pkg/logger"
)

const keyPrefix = "notifier:category:"

// redisClient is the subset of the go-redis API the cache uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CategoryStore is a read-through cache over another store.CategoryStore.
// Cache failures degrade to the inner store, never to an error.
type CategoryStore struct {
	inner  store.CategoryStore
	client redisClient
	ttl    time.Duration
}

func NewCategoryStore(inner store.CategoryStore, client redisClient, ttl time.Duration) *CategoryStore {
	return &CategoryStore{inner: inner, client: client, ttl: ttl}
}

var _ store.CategoryStore = (*CategoryStore)(nil)

func (s *CategoryStore) GetCategory(ctx context.Context, name string) (*domain.Category, error) {
	key := keyPrefix + name

	data, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		var category domain.Category
		if unmarshalErr := json.Unmarshal(data, &category); unmarshalErr == nil {
			return &category, nil
		}
		logger.L().Warn("Discarding unreadable cached category",
			zap.String("category", name),
		)
	} else if err != redis.Nil {
		logger.L().Warn("Redis category lookup failed, falling through to store",
			zap.String("category", name),
			zap.Error(err),
		)
	}

	category, err := s.inner.GetCategory(ctx, name)
	if err != nil {
		return nil, err
	}

	if data, marshalErr := json.Marshal(category); marshalErr == nil {
		if setErr := s.client.Set(ctx, key, data, s.ttl).Err(); setErr != nil {
			logger.L().Warn("Failed to cache category",
				zap.String("category", name),
				zap.Error(setErr),
			)
		}
	}
	return category, nil
}

// NewClient connects to Redis and verifies the connection.
func NewClient(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}
