package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"evo-store/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNotAcquired is returned when another holder owns the lock.
var ErrNotAcquired = errors.New("lock is held by another caller")

// Locker serialises work on a key across API instances.
type Locker interface {
	// Acquire takes the lock for key and returns a release func.
	// Returns ErrNotAcquired when the lock is held elsewhere.
	Acquire(ctx context.Context, key string) (func(), error)
}

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by someone else is not released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisLocker creates a SETNX-based locker with the given lock TTL.
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger zerolog.Logger) Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &redisLocker{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "lock").Logger(),
	}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	key = "lock:" + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	release := func() {
		// The caller's context may already be done by the time we release.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn().Err(err).Str("key", key).Msg("failed to release lock")
		}
	}

	return release, nil
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// NopLocker always grants the lock. Used when Redis is disabled; the
// database conditional update still guards state changes.
type NopLocker struct{}

func (NopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}
