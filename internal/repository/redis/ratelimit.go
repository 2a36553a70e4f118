package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-ledger/internal/clock"
	"github.com/redis/go-redis/v9"
)

// Sliding window over a sorted set of hit timestamps. A rejected hit is not
// kept, so callers that keep retrying do not push their own window forward.
// KEYS[1] = key
// ARGV[1] = now_ms
// ARGV[2] = window_ms
// ARGV[3] = limit
// ARGV[4] = member (unique)
const luaSlidingWindow = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count >= limit then
  local earliest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  local earliestScore = tonumber(earliest[2]) or now
  local retry_ms = window - (now - earliestScore)
  if retry_ms < 0 then retry_ms = 0 end
  return {0, count, retry_ms}
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window)
return {1, count + 1, 0}
`

// Decision is the outcome of one limiter hit.
type Decision struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

type SlidingWindowLimiter struct {
	rdb       *redis.Client
	prefix    string
	limit     int
	window    time.Duration
	script    *redis.Script
	clock     clock.Clock
	newMember func() string
}

func NewSlidingWindowLimiter(
	rdb *redis.Client,
	prefix string,
	limit int,
	window time.Duration,
) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:       rdb,
		prefix:    prefix,
		limit:     limit,
		window:    window,
		script:    redis.NewScript(luaSlidingWindow),
		clock:     clock.NewSystem(),
		newMember: uuid.NewString,
	}
}

func (l *SlidingWindowLimiter) key(suffix string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, l.prefix, suffix)
}

// Allow records a hit for suffix when it fits in the window. When it does
// not, RetryAfter is the time until the oldest hit expires.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, suffix string) (Decision, error) {
	const op = "redis.SlidingWindowLimiter.Allow"

	res, err := l.script.Run(
		ctx,
		l.rdb,
		[]string{l.key(suffix)},
		l.clock.Now().UnixMilli(), l.window.Milliseconds(), l.limit, l.newMember(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%s:%w", op, err)
	}

	if len(res) != 3 {
		return Decision{}, fmt.Errorf("%s: bad script result: %v", op, res)
	}

	return Decision{
		Allowed:    res[0] == 1,
		Count:      res[1],
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}
