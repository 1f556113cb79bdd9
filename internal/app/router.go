package app

import (
	casehttp "github.com/yungbote/casehall-backend/internal/http"
	"github.com/yungbote/casehall-backend/internal/observability"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

func routerConfig(log *logger.Logger, cfg Config, metrics *observability.Metrics, h Handlers, mw Middleware) casehttp.RouterConfig {
	return casehttp.RouterConfig{
		Log:                  log,
		Metrics:              metrics,
		ServiceName:          serviceName,
		CORSOrigins:          cfg.CORSOrigins,
		AuthMiddleware:       mw.Auth,
		FeedLimiter:          mw.FeedLimiter,
		HealthHandler:        h.Health,
		FeedHandler:          h.Feed,
		BidHandler:           h.Bids,
		OpsHandler:           h.Ops,
		RankingConfigHandler: h.RankingConfig,
	}
}
