package app

import (
	httpMW "github.com/yungbote/casehall-backend/internal/http/middleware"
	"github.com/yungbote/casehall-backend/internal/observability"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

type Middleware struct {
	Auth        *httpMW.AuthMiddleware
	FeedLimiter *httpMW.RateLimiter
}

func wireMiddleware(log *logger.Logger, cfg Config, metrics *observability.Metrics) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:        httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey, cfg.JWTIssuer),
		FeedLimiter: httpMW.NewRateLimiter(cfg.FeedRateLimitRPS, cfg.FeedRateLimitBurst, metrics),
	}
}
