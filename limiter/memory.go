package limiter

import (
	"context"
	"math"
	"time"

	ulule "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const cleanUpInterval = time.Minute

// MemoryStorage keeps counters in process memory on top of ulule's memory
// store, which opens a fixed window on the first hit of a key and drops
// expired windows in the background.
type MemoryStorage struct {
	store ulule.Store
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		store: memory.NewStoreWithOptions(ulule.StoreOptions{
			Prefix:          "limiter",
			CleanUpInterval: cleanUpInterval,
		}),
	}
}

func (s *MemoryStorage) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	// the store only counts, Limiter compares against the rule. With an
	// unreachable limit the hit count is recovered from Remaining.
	rate := ulule.Rate{Period: window, Limit: math.MaxInt64}
	res, err := s.store.Increment(ctx, key, 1, rate)
	if err != nil {
		return 0, 0, err
	}

	// Reset has second precision
	ttl := time.Until(time.Unix(res.Reset, 0))
	if ttl < time.Second {
		ttl = time.Second
	}
	if ttl > window {
		ttl = window
	}
	return math.MaxInt64 - res.Remaining, ttl, nil
}
