package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/casehall-backend/internal/clients/redis"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
	"github.com/yungbote/casehall-backend/internal/realtime/bus"
)

type Clients struct {
	Redis goredis.UniversalClient
	// Cache is nil without Redis.
	Cache *redis.DocumentCache
	Bus   bus.Bus
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	rdb, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	if rdb == nil {
		log.Warn("REDIS_ADDR not set; using in-process event bus and no config cache")
		return Clients{Bus: bus.NewMemoryBus()}, nil
	}
	b, err := bus.NewRedisBus(log, rdb, cfg.EventsPrefix)
	if err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("init redis bus: %w", err)
	}
	return Clients{
		Redis: rdb,
		Cache: redis.NewDocumentCache(rdb, "casehall:ranking_config:"),
		Bus:   b,
	}, nil
}

func (c Clients) Close() {
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
