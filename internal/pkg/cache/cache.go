package cache

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/autoarte/AutoArte/internal/pkg/config"
)

// Setup connects to the Redis/Dragonfly cache server. A failed ping is
// logged but not fatal: the catalog and token caches degrade to their
// backing stores, only the sweep lock strictly needs Redis.
func Setup(cfg config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: "",
		DB:       0,
	})

	pong, err := client.Ping(context.Background()).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to cache: %v", err)
	} else {
		log.Printf("Successfully connected to cache: %s", pong)
	}

	return client
}
