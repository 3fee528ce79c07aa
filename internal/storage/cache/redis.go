package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	notifyConfigKey   = "notify-keyspace-events"
	defaultNotifyFlag = "Ex"
	defaultScanCount  = 100
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int

	DialTimeout time.Duration
	// HealthCheckInterval is how long a subscription may stay idle before
	// it pings the server to detect a dead connection.
	HealthCheckInterval time.Duration
	// NotifyFlags are merged into notify-keyspace-events on subscribe.
	NotifyFlags string
	// ScanCount is the COUNT hint passed to SCAN.
	ScanCount int64
	// TLS enables TLS when non-nil.
	TLS *tls.Config
}

func (c *RedisConfig) applyDefaults() {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.HealthCheckInterval <= 0 {
		c.HealthCheckInterval = 5 * time.Second
	}
	if c.NotifyFlags == "" {
		c.NotifyFlags = defaultNotifyFlag
	}
	if c.ScanCount <= 0 {
		c.ScanCount = defaultScanCount
	}
}

// Redis is a Store backed by a Redis server.
type Redis struct {
	client *redis.Client
	cfg    RedisConfig
	logger *slog.Logger
}

// NewRedis creates a client for cfg. The connection is established lazily;
// call Ping to probe it.
func NewRedis(cfg RedisConfig, logger *slog.Logger) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis: addr is required")
	}
	cfg.applyDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
		TLSConfig:   cfg.TLS,
	})
	return NewRedisFromClient(client, cfg, logger), nil
}

// NewRedisFromClient wraps an existing client. cfg.DB must match the
// client's database so the right expiry channel is used.
func NewRedisFromClient(client *redis.Client, cfg RedisConfig, logger *slog.Logger) *Redis {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, cfg: cfg, logger: logger}
}

// ExpiredChannel returns the keyevent channel for expirations in db.
func ExpiredChannel(db int) string {
	return fmt.Sprintf("__keyevent@%d__:expired", db)
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %s: %w", key, err)
	}
	return b, nil
}

func (r *Redis) GetEx(ctx context.Context, key string, ttl time.Duration) ([]byte, error) {
	b, err := r.client.GetEx(ctx, key, ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: getex %s: %w", key, err)
	}
	return b, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: ttl %s: %w", key, err)
	}
	// go-redis reports the raw -2 (missing) and -1 (no expiry) replies.
	switch d {
	case -2:
		return 0, ErrKeyNotFound
	case -1:
		return -1, nil
	}
	return d, nil
}

func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis: exists %s: %w", key, err)
	}
	return n > 0, nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: del %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Scan(ctx context.Context, prefix string, fn func(key string) bool) error {
	iter := r.client.Scan(ctx, 0, escapeGlob(prefix)+"*", r.cfg.ScanCount).Iterator()
	for iter.Next(ctx) {
		if !fn(iter.Val()) {
			return nil
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis: scan %s*: %w", prefix, err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	err := r.client.Close()
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}

// SubscribeExpired merges the configured flags into notify-keyspace-events
// and subscribes to the expiry channel of the configured database.
func (r *Redis) SubscribeExpired(ctx context.Context) (Subscription, error) {
	if err := r.enableNotifications(ctx); err != nil {
		return nil, err
	}
	return r.subscribe(ctx, ExpiredChannel(r.cfg.DB))
}

func (r *Redis) enableNotifications(ctx context.Context) error {
	current, err := r.client.ConfigGet(ctx, notifyConfigKey).Result()
	if err != nil {
		return fmt.Errorf("redis: config get %s: %w", notifyConfigKey, err)
	}
	was := current[notifyConfigKey]
	merged := mergeNotifyFlags(was, r.cfg.NotifyFlags)
	if merged == was {
		return nil
	}
	if err := r.client.ConfigSet(ctx, notifyConfigKey, merged).Err(); err != nil {
		return fmt.Errorf("redis: config set %s: %w", notifyConfigKey, err)
	}
	r.logger.Info("redis: keyspace notifications enabled", "previous", was, "current", merged)
	return nil
}

func (r *Redis) subscribe(ctx context.Context, channel string) (Subscription, error) {
	ps := r.client.Subscribe(ctx, channel)
	// Wait for the confirmation so a dead connection surfaces here.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}
	return &redisSubscription{ps: ps, healthCheck: r.cfg.HealthCheckInterval}, nil
}

type redisSubscription struct {
	ps          *redis.PubSub
	healthCheck time.Duration
}

func (s *redisSubscription) Next(ctx context.Context) (string, error) {
	for {
		stop := context.AfterFunc(ctx, func() { _ = s.ps.Close() })
		msg, err := s.ps.ReceiveTimeout(ctx, s.healthCheck)
		stop()

		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if isTimeout(err) {
				if perr := s.ps.Ping(ctx); perr != nil {
					return "", fmt.Errorf("redis: subscription ping: %w", perr)
				}
				continue
			}
			return "", fmt.Errorf("redis: receive: %w", err)
		}

		if m, ok := msg.(*redis.Message); ok {
			return m.Payload, nil
		}
		// Subscription confirmations and pongs.
	}
}

func (s *redisSubscription) Close() error {
	err := s.ps.Close()
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// mergeNotifyFlags adds the flags in want that current does not already
// cover. "A" covers every event-type flag.
func mergeNotifyFlags(current, want string) string {
	const aliasA = "g$lshzxetd"
	out := current
	for _, f := range want {
		if strings.ContainsRune(out, f) {
			continue
		}
		if strings.ContainsRune(out, 'A') && strings.ContainsRune(aliasA, f) {
			continue
		}
		out += string(f)
	}
	return out
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ Store = (*Redis)(nil)
