package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// CacheRepository stores JSON-encoded structs with a TTL.
type CacheRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheRepository(client *redis.Client, ttl time.Duration) *CacheRepository {
	return &CacheRepository{client: client, ttl: ttl}
}

func (r *CacheRepository) SaveStructCached(ctx context.Context, key string, model any) error {
	val, err := json.Marshal(model)
	if err != nil {
		return errors.Wrap(err, "encode cached struct")
	}
	return errors.Wrap(r.client.Set(ctx, key, val, r.ttl).Err(), "save cached struct")
}

// GetStructCached decodes key into model. A miss returns ErrNotFound.
func (r *CacheRepository) GetStructCached(ctx context.Context, key string, model any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "get cached struct")
	}
	return errors.Wrap(json.Unmarshal(data, model), "decode cached struct")
}

func (r *CacheRepository) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return errors.Wrap(r.client.Del(ctx, keys...).Err(), "invalidate cache")
}

func CourseCacheKey(courseID string) string {
	return "course:" + courseID
}
