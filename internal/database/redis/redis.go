package redis

import (
	"context"
	"time"

	"learnsphere/internal/config"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

var Client *redis.Client

// Connect creates the shared client. A failed ping is logged, not fatal:
// the cache-backed features degrade to Mongo.
func Connect(cfg config.RedisConfig) *redis.Client {
	Client = redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := Client.Ping(ctx).Err(); err != nil {
		log.Printf("Error connecting to Redis at %s: %s", cfg.Address, err)
	} else {
		log.Printf("Connected to Redis at %s", cfg.Address)
	}
	return Client
}

func Close() {
	if Client == nil {
		return
	}
	if err := Client.Close(); err != nil {
		log.Printf("Error closing Redis client: %s", err)
	}
}

func IsConnected() bool {
	if Client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return Client.Ping(ctx).Err() == nil
}
