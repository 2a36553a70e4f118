package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/kirinyoku/tix-ledger/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var limiterNow = time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

func newTestLimiter(t *testing.T) (*SlidingWindowLimiter, redismock.ClientMock) {
	t.Helper()

	db, mock := redismock.NewClientMock()
	l := NewSlidingWindowLimiter(db, "resale", 2, time.Minute)
	l.clock = clock.NewFixed(limiterNow)
	l.newMember = func() string { return "hit-1" }

	return l, mock
}

func TestSlidingWindowLimiter_Key(t *testing.T) {
	l := NewSlidingWindowLimiter(nil, "resale", 10, time.Minute)

	assert.Equal(t, "tixledger:v1:rl:resale:caller:alice", l.key("caller:alice"))
}

func TestSlidingWindowLimiter_Allowed(t *testing.T) {
	l, mock := newTestLimiter(t)

	mock.ExpectEvalSha(l.script.Hash(), []string{l.key("alice")},
		limiterNow.UnixMilli(), int64(60000), 2, "hit-1",
	).SetVal([]any{int64(1), int64(1), int64(0)})

	d, err := l.Allow(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(1), d.Count)
	assert.Zero(t, d.RetryAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlidingWindowLimiter_Rejected(t *testing.T) {
	l, mock := newTestLimiter(t)

	mock.ExpectEvalSha(l.script.Hash(), []string{l.key("alice")},
		limiterNow.UnixMilli(), int64(60000), 2, "hit-1",
	).SetVal([]any{int64(0), int64(2), int64(1500)})

	d, err := l.Allow(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1500*time.Millisecond, d.RetryAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlidingWindowLimiter_BadResult(t *testing.T) {
	l, mock := newTestLimiter(t)

	mock.ExpectEvalSha(l.script.Hash(), []string{l.key("alice")},
		limiterNow.UnixMilli(), int64(60000), 2, "hit-1",
	).SetVal([]any{int64(1)})

	_, err := l.Allow(context.Background(), "alice")
	assert.Error(t, err)
}
