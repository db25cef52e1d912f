package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/providers"
	redisclient "github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/clients/redis"
	apperrors "github.com/CiaranKeogh/Portfolio-Projects/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still belongs to the caller
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisAdapter implements CacheProvider and RunLocker using Redis
type RedisAdapter struct {
	client redis.UniversalClient
}

var (
	_ providers.CacheProvider = (*RedisAdapter)(nil)
	_ providers.RunLocker     = (*RedisAdapter)(nil)
)

// NewRedisAdapter creates a new Redis cache adapter
func NewRedisAdapter(client *redisclient.Client) *RedisAdapter {
	return &RedisAdapter{
		client: client.Client(),
	}
}

// Get retrieves a value from cache
func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := a.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("key not found: %s", key))
	}
	if err != nil {
		return nil, apperrors.NewExternalError("failed to get from cache", err)
	}
	return result, nil
}

// Set stores a value in cache with expiration. Zero means no expiry.
func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	expiration := time.Duration(expirationSeconds) * time.Second
	if err := a.client.Set(ctx, key, value, expiration).Err(); err != nil {
		return apperrors.NewExternalError("failed to set in cache", err)
	}
	return nil
}

// Exists checks if a key exists in cache
func (a *RedisAdapter) Exists(ctx context.Context, key string) (bool, error) {
	result, err := a.client.Exists(ctx, key).Result()
	if err != nil {
		return false, apperrors.NewExternalError("failed to check existence in cache", err)
	}
	return result > 0, nil
}

// AcquireLock sets key to owner if it is unset
func (a *RedisAdapter) AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := a.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, apperrors.NewExternalError("failed to acquire lock", err)
	}
	return ok, nil
}

// ReleaseLock deletes key if owner still holds it
func (a *RedisAdapter) ReleaseLock(ctx context.Context, key, owner string) error {
	if err := releaseScript.Run(ctx, a.client, []string{key}, owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return apperrors.NewExternalError("failed to release lock", err)
	}
	return nil
}
