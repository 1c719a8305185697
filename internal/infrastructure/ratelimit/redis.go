package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "campusportal:ratelimit:"
	redisOpTimeout   = 250 * time.Millisecond
	redisPingTimeout = 2 * time.Second
)

// RedisConfig holds connection settings for the shared limiter.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Redis is a Limiter backed by per-key counters with an expiry.
type Redis struct {
	store   counterStore
	logger  *slog.Logger
	prefix  string
	timeout time.Duration
}

// counterStore is the slice of Redis the limiter needs.
type counterStore interface {
	// hit increments key and returns the new count with the key's
	// remaining TTL. A negative TTL means the key has no expiry.
	hit(ctx context.Context, key string) (int64, time.Duration, error)
	expire(ctx context.Context, key string, win time.Duration) error
	Close() error
}

type redisStore struct {
	client *redis.Client
}

func (s redisStore) hit(ctx context.Context, key string) (int64, time.Duration, error) {
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		ttl = p.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return incr.Val(), ttl.Val(), nil
}

func (s redisStore) expire(ctx context.Context, key string, win time.Duration) error {
	return s.client.Expire(ctx, key, win).Err()
}

func (s redisStore) Close() error {
	return s.client.Close()
}

// NewRedis connects to Redis and verifies the connection with PING.
func NewRedis(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}

	return newRedis(client, logger), nil
}

func newRedis(client *redis.Client, logger *slog.Logger) *Redis {
	return newRedisOn(redisStore{client: client}, logger)
}

func newRedisOn(store counterStore, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		store:   store,
		logger:  logger.With("component", "ratelimit"),
		prefix:  redisKeyPrefix,
		timeout: redisOpTimeout,
	}
}

// Allow increments the counter for key. Redis errors allow the request.
//
// INCR and TTL run in one MULTI/EXEC. Any key found without an expiry,
// whether freshly created or left behind by a failed EXPIRE, gets the
// window set again, so a counter can never outlive its window for long.
func (r *Redis) Allow(ctx context.Context, key string, limit int, win time.Duration) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}
	if win <= 0 {
		win = defaultWindow
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	redisKey := r.prefix + key
	count, ttl, err := r.store.hit(ctx, redisKey)
	if err != nil {
		r.logger.Error("redis rate limiter error", "op", "incr", "error", err)
		return Decision{Allowed: true, Limit: limit}
	}
	if ttl < 0 {
		if err := r.store.expire(ctx, redisKey, win); err != nil {
			r.logger.Error("redis rate limiter error", "op", "expire", "error", err)
		}
		ttl = win
	}

	return Decision{
		Allowed:   int(count) <= limit,
		Count:     int(count),
		Limit:     limit,
		WindowEnd: time.Now().Add(ttl),
	}
}

// Close releases the Redis connection pool.
func (r *Redis) Close() error {
	return r.store.Close()
}
