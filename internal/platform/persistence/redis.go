package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edocument-exchange/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, logger *slog.Logger, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	logger.Info("Connected to Redis", "addr", cfg.Addr)
	return client, nil
}
