package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/observability"
	"github.com/CiaranKeogh/Portfolio-Projects/pkg/config"
	"github.com/CiaranKeogh/Portfolio-Projects/pkg/retry"
	"github.com/redis/go-redis/v9"
)

// Client represents a Redis client
type Client struct {
	client *redis.Client
}

// NewClient creates a new Redis client, retrying the initial ping
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = 5
	retryCfg.MaxTotalTimeout = 15 * time.Second

	logger := observability.LoggerFromContext(ctx)
	err := retry.DoWithLog(ctx, retryCfg, "Redis",
		func() error {
			return client.Ping(ctx).Err()
		},
		func(attempt int, err error, nextDelay time.Duration) {
			logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("Redis connection attempt failed")
		},
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// Client returns the underlying Redis client
func (c *Client) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Ping verifies the connection to Redis
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
