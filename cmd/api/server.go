package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-grid/internal/adapters/cache"
	adapterHTTP "github.com/comitanigiacomo/kanso-grid/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-grid/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-grid/internal/config"
	"github.com/comitanigiacomo/kanso-grid/internal/core/clock"
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/services"
	"github.com/comitanigiacomo/kanso-grid/internal/core/viewport"
	"github.com/comitanigiacomo/kanso-grid/internal/core/workers"
	"github.com/comitanigiacomo/kanso-grid/internal/logger"
)

// store is what the services need from the persistence layer.
type store interface {
	services.ImportStore
}

// cachedStore routes habit reads and imports through the Redis decorator and
// log access to the underlying store.
type cachedStore struct {
	*repository.CachedHabitRepository
	domain.LogRepository
}

type server struct {
	http   *http.Server
	worker *workers.StreakWorker
	db     *sqlx.DB
	redis  *redis.Client
	cancel context.CancelFunc
}

func openStore(ctx context.Context, cfg config.Config) (store, *sqlx.DB, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return repository.NewMemoryStore(), nil, nil
	case config.StorageSQLite:
		db, err := repository.Open(ctx, repository.DriverSQLite, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := repository.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repository.NewSQLStore(db), db, nil
	default:
		db, err := repository.Open(ctx, cfg.DB.Driver, cfg.DB.DSN())
		if err != nil {
			return nil, nil, err
		}
		if err := repository.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repository.NewSQLStore(db), db, nil
	}
}

// newServer wires storage, caches, services and handlers and starts the
// streak worker. The listener is not started.
func newServer(ctx context.Context, cfg config.Config, clk clock.Clock) (*server, error) {
	st, db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	logger.Info("storage ready", "driver", cfg.Storage)

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, continuing without cache", "err", err)
			rdb = nil
		} else {
			logger.Info("redis connected", "addr", cfg.Redis.Addr())
		}
	}

	var (
		streaks   domain.StreakCache
		viewports viewport.Store
	)
	switch {
	case rdb != nil:
		st = cachedStore{
			CachedHabitRepository: repository.NewCachedHabitRepository(st, rdb),
			LogRepository:         st,
		}
		streaks = repository.NewRedisStreakCache(rdb)
		viewports = repository.NewRedisViewportStore(rdb)
	case db != nil:
		streaks = repository.NewMemoryStore()
		viewports = repository.NewSQLViewportStore(db)
	default:
		streaks = st.(*repository.MemoryStore)
		viewports = viewport.NewMemoryStore()
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	worker := workers.NewStreakWorker(st, st, streaks, clk, cfg.Location)
	worker.Start(workerCtx)

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if cfg.UsesDevSecret() {
		logger.Warn("JWT_SECRET not set, using the development secret")
	}

	router := adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		HabitHandler:       adapterHTTP.NewHabitHandler(services.NewHabitService(st), cfg.Location),
		LogHandler:         adapterHTTP.NewLogHandler(services.NewLogService(st, st, worker), cfg.Location),
		StatsHandler:       adapterHTTP.NewStatsHandler(services.NewAnalyticsService(st, st, streaks), cfg.Location),
		ViewportHandler:    adapterHTTP.NewViewportHandler(viewports, clk, cfg.Location),
		PortabilityHandler: adapterHTTP.NewPortabilityHandler(services.NewPortabilityService(st)),
		TokenService:       tokens,
		DB:                 db,
		Redis:              rdb,
		RateLimit:          cfg.RateLimit,
		RateWindow:         cfg.RateWindow,
		StartTime:          clk.Now(),
	})

	return &server{
		http: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		worker: worker,
		db:     db,
		redis:  rdb,
		cancel: cancel,
	}, nil
}

// Close stops the worker and releases connections. The HTTP server must
// already be shut down.
func (s *server) Close() {
	s.cancel()
	s.worker.Wait()
	if s.redis != nil {
		s.redis.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}
