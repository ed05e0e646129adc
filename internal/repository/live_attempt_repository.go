package repository

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const liveAttemptRetries = 5

// LiveAttemptRepository keeps in-progress quiz sessions in Redis between
// requests. Updates use WATCH so two requests on the same session cannot
// interleave their read-modify-write.
type LiveAttemptRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLiveAttemptRepository(client *redis.Client, ttl time.Duration) *LiveAttemptRepository {
	return &LiveAttemptRepository{client: client, ttl: ttl}
}

func liveAttemptKey(id string) string {
	return "attempt:live:" + id
}

func (r *LiveAttemptRepository) Create(ctx context.Context, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode live attempt")
	}
	ok, err := r.client.SetNX(ctx, liveAttemptKey(id), data, r.ttl).Result()
	if err != nil {
		return errors.Wrap(err, "create live attempt")
	}
	if !ok {
		return errors.Wrap(ErrDuplicate, "create live attempt")
	}
	return nil
}

func (r *LiveAttemptRepository) Get(ctx context.Context, id string, v any) error {
	data, err := r.client.Get(ctx, liveAttemptKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return errors.Wrap(ErrNotFound, "get live attempt")
	}
	if err != nil {
		return errors.Wrap(err, "get live attempt")
	}
	return errors.Wrap(json.Unmarshal(data, v), "decode live attempt")
}

// Update loads the session into v, runs mutate and writes v back, keeping
// the key's TTL. mutate may run more than once if the key changes under it.
func (r *LiveAttemptRepository) Update(ctx context.Context, id string, v any, mutate func() error) error {
	key := liveAttemptKey(id)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return errors.Wrap(ErrNotFound, "update live attempt")
		}
		if err != nil {
			return err
		}
		// start from zero so a retry never sees fields from the last read
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && !rv.IsNil() {
			rv.Elem().SetZero()
		}
		if err := json.Unmarshal(data, v); err != nil {
			return errors.Wrap(err, "decode live attempt")
		}
		if err := mutate(); err != nil {
			return err
		}
		out, err := json.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "encode live attempt")
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, redis.KeepTTL)
			return nil
		})
		return err
	}

	for i := 0; i < liveAttemptRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return errors.Wrap(ErrConflict, "update live attempt")
}

func (r *LiveAttemptRepository) Delete(ctx context.Context, id string) error {
	return errors.Wrap(r.client.Del(ctx, liveAttemptKey(id)).Err(), "delete live attempt")
}
