package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kirinyoku/tix-ledger/internal/clock"
	"github.com/kirinyoku/tix-ledger/internal/config"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/journal"
	"github.com/kirinyoku/tix-ledger/internal/ledger"
	"github.com/kirinyoku/tix-ledger/internal/metrics"
	"github.com/kirinyoku/tix-ledger/internal/postgres"
	"github.com/kirinyoku/tix-ledger/internal/redis"
	postgresrepo "github.com/kirinyoku/tix-ledger/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tix-ledger/internal/repository/redis"
	"github.com/kirinyoku/tix-ledger/internal/service"
	"github.com/kirinyoku/tix-ledger/internal/service/admin"
	httpgin "github.com/kirinyoku/tix-ledger/internal/transport/http/gin"
	"github.com/kirinyoku/tix-ledger/migrations"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	rdb        *goredis.Client
	cache      *redisrepo.Cache
	pubsub     *redisrepo.NotificationsPubSub
	httpServer *http.Server
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Initialize dependencies
	pgxPool, err := postgres.New(ctx, postgres.Config{DSN: cfg.Postgres.DSN(), MinConns: 2})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	if err := migrations.Apply(ctx, pgxPool); err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	// Initialize repositories
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb)
	pubsub := redisrepo.NewNotificationsPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "resale", cfg.Resale.RateLimit, cfg.Resale.RateWindow)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, cfg.Idempotency.TTL)

	// Restore live ledgers from the journal
	clk := clock.NewSystem()
	jrnl := journal.New(store, cache, pubsub, logger)
	registry := ledger.NewRegistry()

	restored, err := jrnl.Restore(ctx, registry, ledger.WithClock(clk))
	if err != nil {
		pgxPool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to restore ledgers: %w", err)
	}
	logger.Info("ledgers restored", "count", restored)
	metrics.SetLedgersServed(registry.Len())

	// Initialize services
	services := service.NewServices(registry, jrnl, store, cache, limiter, clk, service.Config{
		Admin: admin.Config{
			Policy: ledger.Policy{SingleUseAdmission: cfg.Ledger.SingleUseAdmission},
		},
	})

	// Initialize Gin router
	router := httpgin.NewRouter(services, idempotencyStore, logger)

	return &App{
		cfg:    cfg,
		logger: logger,
		pool:   pgxPool,
		rdb:    rdb,
		cache:  cache,
		pubsub: pubsub,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer a.pool.Close()
	defer a.rdb.Close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Drop cached reads touched by notifications from any instance
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, n domain.Notification) {
			if err := a.cache.InvalidateNotification(ctx, n); err != nil {
				a.logger.Warn("cache invalidation failed", "ledger_id", n.LedgerID, "seq", n.Seq, "error", err)
			}
		})
		if err != nil && gCtx.Err() == nil {
			return fmt.Errorf("notification subscriber stopped: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
