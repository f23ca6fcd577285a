package main

import (
	"context"
	"fmt"
	"log/slog"

	"partyvote/internal/config"
	"partyvote/internal/store"
	"partyvote/internal/store/boltstore"
	"partyvote/internal/store/memory"
	"partyvote/internal/store/pgstore"
	"partyvote/internal/store/redisstore"
)

// openStore opens the backend selected by --store
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	logger = logger.With("component", "store", "kind", cfg.Store.Kind)

	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Kind {
	case store.KindMemory:
		logger.Warn("using in-memory store, state is lost on restart")
		st = memory.NewStore()
	case store.KindBolt:
		st, err = boltstore.Open(cfg.Store.BoltPath, logger)
	case store.KindPostgres:
		st, err = pgstore.Open(ctx, cfg.Store.PostgresDSN, logger)
	case store.KindRedis:
		st, err = redisstore.Open(ctx, cfg.Store.RedisURL, logger)
	default:
		return nil, fmt.Errorf("%w: %q", store.ErrUnknownKind, cfg.Store.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Kind, err)
	}

	logger.Info("store opened")
	return st, nil
}
