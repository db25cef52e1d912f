package providers

import (
	"context"
	"time"
)

// CacheProvider defines the interface for caching operations
type CacheProvider interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error

	// Exists checks if a key exists in cache
	Exists(ctx context.Context, key string) (bool, error)
}

// RunLocker serialises pricing runs across processes
type RunLocker interface {
	// AcquireLock takes the named lock for ttl. It returns false when another holder has it.
	AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// ReleaseLock releases the lock if owner still holds it
	ReleaseLock(ctx context.Context, key, owner string) error
}

// Cache keys shared by the pricing run
const (
	CacheKeyRunLock = "pricing:run-lock"
	CacheKeyLastRun = "pricing:last-run"
)
