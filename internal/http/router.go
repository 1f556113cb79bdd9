package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/casehall-backend/internal/http/handlers"
	httpMW "github.com/yungbote/casehall-backend/internal/http/middleware"
	"github.com/yungbote/casehall-backend/internal/observability"
	"github.com/yungbote/casehall-backend/internal/platform/ctxutil"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware
	FeedLimiter    *httpMW.RateLimiter

	HealthHandler        *httpH.HealthHandler
	FeedHandler          *httpH.FeedHandler
	BidHandler           *httpH.BidHandler
	OpsHandler           *httpH.OpsHandler
	RankingConfigHandler *httpH.RankingConfigHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	probes := []string{"/healthcheck", "/readyz"}
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log, probes...))
	}
	r.Use(httpMW.Metrics(cfg.Metrics, probes...))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Case hall
	if cfg.FeedHandler != nil {
		api.GET("/feed", httpMW.RequireRole(ctxutil.RoleAttorney), cfg.FeedLimiter.Handler(), cfg.FeedHandler.GetFeed)
	}

	// Bid lifecycle
	if cfg.BidHandler != nil {
		api.POST("/cases/:caseId/bids", httpMW.RequireRole(ctxutil.RoleAttorney), cfg.BidHandler.SubmitBid)
		api.POST("/bids/:bidId/withdraw", httpMW.RequireRole(ctxutil.RoleAttorney), cfg.BidHandler.WithdrawBid)
		api.POST("/cases/:caseId/select", httpMW.RequireRole(ctxutil.RoleClient), cfg.BidHandler.SelectBid)
	}

	admin := api.Group("/admin", httpMW.RequireRole(ctxutil.RoleAdmin))
	{
		if cfg.OpsHandler != nil {
			admin.GET("/ops/priorities", cfg.OpsHandler.ListPriorities)
		}
		if cfg.RankingConfigHandler != nil {
			admin.GET("/ranking-config/:feedKey", cfg.RankingConfigHandler.Get)
			admin.PUT("/ranking-config/:feedKey", cfg.RankingConfigHandler.Put)
		}
	}

	return r
}
