// Package app wires configuration into a ready LoanService. Both the API
// server and the scheduler start from here.
package app

import (
	"context"
	"fmt"

	"github.com/segyhp/loan-ledger/internal/cache"
	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/ledger"
	"github.com/segyhp/loan-ledger/internal/notify"
	"github.com/segyhp/loan-ledger/internal/repository"
	"github.com/segyhp/loan-ledger/internal/service"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	DB      *sqlx.DB
	Redis   *redis.Client // nil when Redis is disabled
	Service *service.LoanService
}

// New connects to the database (migrating it), optionally to Redis, and
// builds the service. Without Redis the schedule cache and the per-loan lock
// live in process memory.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := initDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not migrate database: %w", err)
	}

	a := &App{DB: db}
	store := repository.NewStore(db)

	deps := service.Dependencies{
		Loans:    store.Loans,
		Payments: store.Payments,
		Tx:       store,
		Notifier: notify.New(cfg.Mail, logger),
		Logger:   logger,
	}

	if cfg.Redis.Enabled {
		a.Redis = initRedis(cfg)
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("could not connect to redis: %w", err)
		}
		deps.Schedules = cache.NewRedisScheduleCache(a.Redis, cfg.GetScheduleTTL(), logger)
		deps.Locker = cache.NewRedisLocker(a.Redis, cfg.GetLockTTL(), logger)
	} else {
		deps.Schedules = cache.NewMemoryScheduleCache()
		deps.Locker = ledger.NewKeyedMutex()
	}

	a.Service = service.NewLoanService(deps, service.OptionsFromConfig(cfg))
	return a, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	a.DB.Close()
}

func initDB(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := repository.Connect(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Driver == repository.DriverPostgres {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.GetConnMaxLifetime())
	}

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
