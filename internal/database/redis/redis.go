package redis

import (
	"context"
	"log"
	"membership-service/internal/config"
	"time"

	"github.com/redis/go-redis/v9"
)

func NewClient(cfg config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Error connect to Redis at %s: %s", cfg.Address, err)
	} else {
		log.Printf("Connected to Redis at %s", cfg.Address)
	}
	return client
}
