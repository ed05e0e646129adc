package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// OAuthStateRepository remembers issued OAuth state values until they are
// used once or expire.
type OAuthStateRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewOAuthStateRepository(client *redis.Client, ttl time.Duration) *OAuthStateRepository {
	return &OAuthStateRepository{client: client, ttl: ttl}
}

func (r *OAuthStateRepository) Save(ctx context.Context, state string) error {
	return errors.Wrap(r.client.Set(ctx, "oauth:state:"+state, 1, r.ttl).Err(), "save oauth state")
}

// Consume deletes the state and reports whether it existed.
func (r *OAuthStateRepository) Consume(ctx context.Context, state string) (bool, error) {
	err := r.client.GetDel(ctx, "oauth:state:"+state).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "consume oauth state")
	}
	return true, nil
}
