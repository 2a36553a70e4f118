package service

import (
	"github.com/kirinyoku/tix-ledger/internal/clock"
	"github.com/kirinyoku/tix-ledger/internal/ledger"
	postgres "github.com/kirinyoku/tix-ledger/internal/repository/postgres"
	redis "github.com/kirinyoku/tix-ledger/internal/repository/redis"
	"github.com/kirinyoku/tix-ledger/internal/service/admin"
	"github.com/kirinyoku/tix-ledger/internal/service/health"
	"github.com/kirinyoku/tix-ledger/internal/service/payouts"
	"github.com/kirinyoku/tix-ledger/internal/service/query"
	"github.com/kirinyoku/tix-ledger/internal/service/resale"
)

type Services struct {
	Admin   *admin.Service
	Resale  *resale.Service
	Query   *query.Service
	Payouts *payouts.Service
	Health  *health.Service
}

type Config struct {
	Admin admin.Config
	Query query.Config
}

func NewServices(
	registry *ledger.Registry,
	journal admin.Journal,
	store *postgres.Store,
	cache *redis.Cache,
	limiter *redis.SlidingWindowLimiter,
	clk clock.Clock,
	cfg Config,
) *Services {
	var lim resale.Limiter
	if limiter != nil {
		lim = limiter
	}

	hc := health.New(0)
	hc.Register("postgres", store)
	if cache != nil {
		hc.Register("redis", cache)
	}

	return &Services{
		Admin:   admin.New(registry, journal, clk, cfg.Admin),
		Resale:  resale.New(registry, lim),
		Query:   query.New(registry, store.Query(), cache, cfg.Query),
		Payouts: payouts.New(store.Query()),
		Health:  hc,
	}
}
