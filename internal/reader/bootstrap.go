package reader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/reader/internal/config"
	"github.com/jonesrussell/north-cloud/reader/internal/ingest"
	"github.com/jonesrussell/north-cloud/reader/internal/logger"
	"github.com/jonesrussell/north-cloud/reader/internal/storage"
	"github.com/jonesrussell/north-cloud/reader/internal/storage/memory"
	"github.com/jonesrussell/north-cloud/reader/internal/storage/postgres"
)

// ErrRedisDisabled indicates Redis is disabled in the config.
var ErrRedisDisabled = errors.New("redis disabled")

// redisPingTimeout is the timeout for verifying the Redis connection.
const redisPingTimeout = 5 * time.Second

// OpenStore opens the configured storage backend.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return store, nil
	case config.DriverMemory, "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// CreateRedisClient connects to Redis. ErrRedisDisabled is returned when it is off.
func CreateRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, ErrRedisDisabled
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Open builds a Service from cfg: the configured store, a Redis-backed ingestion lock
// when Redis is enabled, and metrics on reg.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger, reg prometheus.Registerer) (*Service, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	deps := Deps{Store: store, Registerer: reg, Logger: log}

	client, err := CreateRedisClient(ctx, &cfg.Redis)
	switch {
	case errors.Is(err, ErrRedisDisabled):
	case err != nil:
		_ = store.Close()
		return nil, err
	default:
		deps.Locker = ingest.NewRedisLocker(client, cfg.Ingest.LockTTL)
		deps.Closers = append(deps.Closers, client.Close)
		if log != nil {
			log.Info("using redis ingestion lock", logger.String("address", cfg.Redis.Address))
		}
	}

	svc, err := New(cfg, deps)
	if err != nil {
		for _, c := range deps.Closers {
			_ = c()
		}
		_ = store.Close()
		return nil, err
	}
	return svc, nil
}
