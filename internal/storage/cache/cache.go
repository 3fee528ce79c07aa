package cache

import (
	"context"
	"errors"
	"time"
)

// Common errors.
var (
	ErrKeyNotFound = errors.New("cache: key not found")
	ErrClosed      = errors.New("cache: closed")
)

// Cache is the set of single-key primitives sessions are built on.
type Cache interface {
	// Get returns the value of key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetEx returns the value of key and resets its TTL in the same
	// operation. Returns ErrKeyNotFound if the key is absent.
	GetEx(ctx context.Context, key string, ttl time.Duration) ([]byte, error)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// TTL returns the remaining lifetime of key. It returns ErrKeyNotFound
	// for a missing key and a negative duration for a key without expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Scan calls fn for every key with the given prefix until fn returns
	// false. Keys added or removed during the scan may or may not be seen.
	Scan(ctx context.Context, prefix string, fn func(key string) bool) error

	// Ping probes connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

// ExpirySource delivers expired-key notifications.
type ExpirySource interface {
	// SubscribeExpired enables expiry notifications and subscribes to them.
	// It must be called again after a connectivity failure since the
	// notification setting may not survive a reconnect.
	SubscribeExpired(ctx context.Context) (Subscription, error)
}

// Subscription is a live stream of expired keys.
type Subscription interface {
	// Next blocks until an expired key arrives, ctx is done, or the
	// connection fails.
	Next(ctx context.Context) (string, error)

	// Close ends the subscription.
	Close() error
}

// Store is a Cache that can also report expirations.
type Store interface {
	Cache
	ExpirySource
}
