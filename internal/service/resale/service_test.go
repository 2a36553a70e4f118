package resale_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-ledger/internal/clock"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/ledger"
	redisrepo "github.com/kirinyoku/tix-ledger/internal/repository/redis"
	"github.com/kirinyoku/tix-ledger/internal/service/resale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 4, 2, 18, 0, 0, 0, time.UTC)

type stubLimiter struct {
	allow bool
	retry time.Duration
	err   error
	keys  []string
}

func (s *stubLimiter) Allow(ctx context.Context, suffix string) (redisrepo.Decision, error) {
	s.keys = append(s.keys, suffix)
	return redisrepo.Decision{Allowed: s.allow, Count: 1, RetryAfter: s.retry}, s.err
}

func setup(t *testing.T, lim resale.Limiter) (*resale.Service, *ledger.Ledger) {
	t.Helper()

	l, err := ledger.New(uuid.New(), domain.LedgerConfig{
		EventName:     "Match",
		Administrator: "admin",
		TotalSupply:   10,
		EventAt:       now.Add(24 * time.Hour),
		BasePrice:     100,
		RoyaltyRate:   10,
	}, ledger.WithClock(clock.NewFixed(now)))
	require.NoError(t, err)

	reg := ledger.NewRegistry()
	require.NoError(t, reg.Add(l))

	return resale.New(reg, lim), l
}

func TestResell_AppliesRoyalty(t *testing.T) {
	ctx := context.Background()
	lim := &stubLimiter{allow: true}
	svc, l := setup(t, lim)

	_, err := l.Issue(ctx, "admin", "alice", "GA", true)
	require.NoError(t, err)

	r, err := svc.Resell(ctx, l.ID(), 1, 250, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(25), r.Royalty)
	assert.Equal(t, int64(225), r.SellerProceeds)
	assert.Equal(t, domain.Identity("bob"), r.Ticket.Holder)

	require.Len(t, lim.keys, 1)
	assert.Equal(t, l.ID().String()+":alice", lim.keys[0])
}

func TestResell_RateLimited(t *testing.T) {
	ctx := context.Background()
	lim := &stubLimiter{allow: false, retry: 3 * time.Second}
	svc, l := setup(t, lim)

	_, err := l.Issue(ctx, "admin", "alice", "GA", true)
	require.NoError(t, err)

	_, err = svc.Resell(ctx, l.ID(), 1, 250, "bob", "alice")

	var rl resale.RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 3*time.Second, rl.RetryAfter)

	tk, err := l.Ticket(1)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity("alice"), tk.Holder)
}

func TestResell_LimiterErrorSurfaces(t *testing.T) {
	boom := errors.New("redis down")
	svc, l := setup(t, &stubLimiter{err: boom})

	_, err := svc.Resell(context.Background(), l.ID(), 1, 10, "bob", "alice")
	assert.ErrorIs(t, err, boom)
}

func TestResell_LedgerErrors(t *testing.T) {
	ctx := context.Background()
	svc, l := setup(t, nil)

	_, err := svc.Resell(ctx, uuid.New(), 1, 10, "bob", "alice")
	assert.ErrorIs(t, err, resale.ErrLedgerNotFound)

	_, err = svc.Resell(ctx, l.ID(), 1, 10, "bob", "alice")
	assert.ErrorIs(t, err, ledger.ErrUnknownTicket)

	_, err = l.Issue(ctx, "admin", "alice", "GA", false)
	require.NoError(t, err)

	_, err = svc.Resell(ctx, l.ID(), 1, 10, "bob", "carol")
	assert.ErrorIs(t, err, ledger.ErrNotOwner)

	_, err = svc.Resell(ctx, l.ID(), 1, 10, "bob", "alice")
	assert.ErrorIs(t, err, ledger.ErrNotResellable)
}

func TestQuote(t *testing.T) {
	ctx := context.Background()
	svc, l := setup(t, nil)

	p, err := svc.Quote(l.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(100), p)

	for i := 0; i < 5; i++ {
		_, err := l.Issue(ctx, "admin", "alice", "GA", true)
		require.NoError(t, err)
	}

	p, err = svc.Quote(l.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(150), p)

	_, err = svc.Quote(uuid.New())
	assert.ErrorIs(t, err, resale.ErrLedgerNotFound)
}
