package limiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage shares counters between instances through Redis
type RedisStorage struct {
	client redis.UniversalClient
}

func NewRedisStorage(client redis.UniversalClient) *RedisStorage {
	return &RedisStorage{client: client}
}

// NewRedisStorageFromURL connects using a redis:// or rediss:// url
func NewRedisStorageFromURL(url string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedisStorage(redis.NewClient(opts)), nil
}

func (s *RedisStorage) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}

	// the expiry is set by the first hit only, which makes the window fixed
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		return count, window, nil
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if ttl < 0 {
		// the first hit died before setting the expiry
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		ttl = window
	}
	return count, ttl, nil
}

// Close releases the underlying client
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
