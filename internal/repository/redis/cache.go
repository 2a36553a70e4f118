package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache is a read-through JSON cache in front of the query store. Postgres
// stays the source of truth: a cache outage degrades to direct loads.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis.Cache.Ping: %w", err)
	}
	return nil
}

func (c *Cache) del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	return c.rdb.Del(ctx, keys...).Err()
}

// lookup reports a hit only for a value that decodes into out; a value
// written by an older layout counts as a miss and gets overwritten.
func lookup[T any](ctx context.Context, c *Cache, key string, out *T) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return false, nil
	}

	return true, nil
}

// GetOrSetJSON returns the cached value under key or loads, stores and
// returns it. Concurrent misses on one key share a single load. Loader
// errors are returned as is and never cached.
//
// Parameters:
//   - ctx: request-scoped context.
//   - c: cache, nil disables caching.
//   - key: cache key, see keys.go.
//   - ttl: lifetime of a stored value.
//   - loader: reads the value from the store on a miss.
//
// Returns:
//   - T: the cached or loaded value.
//   - error: the loader error, if any.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if c == nil {
		return loader(ctx)
	}

	var cached T
	hit, err := lookup(ctx, c, key, &cached)
	if err != nil {
		return loader(ctx)
	}
	if hit {
		return cached, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		if b, err := json.Marshal(loaded); err == nil {
			_ = c.rdb.Set(ctx, key, string(b), ttl).Err()
		}

		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return v.(T), nil
}

// InvalidateNotification drops every cached read a notification may have
// made stale: the ledger counters, the ticket and the holder lists on both
// sides of the transition.
func (c *Cache) InvalidateNotification(ctx context.Context, n domain.Notification) error {
	keys := []string{
		KeyLedgerInfo(n.LedgerID),
		KeyTicket(n.LedgerID, n.TicketID),
	}
	for _, h := range []domain.Identity{n.From, n.To} {
		if !h.IsZero() {
			keys = append(keys, KeyHolderTickets(n.LedgerID, h))
		}
	}

	if err := c.del(ctx, keys...); err != nil {
		return fmt.Errorf("redis.Cache.InvalidateNotification: %w", err)
	}

	return nil
}
