package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/casehall-backend/internal/http/handlers"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

type Handlers struct {
	Health        *handlers.HealthHandler
	Feed          *handlers.FeedHandler
	Bids          *handlers.BidHandler
	Ops           *handlers.OpsHandler
	RankingConfig *handlers.RankingConfigHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, svc Services) Handlers {
	log.Info("Wiring handlers...")
	var pinger handlers.Pinger
	if sqlDB, err := db.DB(); err == nil {
		pinger = sqlDB
	}
	return Handlers{
		Health:        handlers.NewHealthHandler(pinger),
		Feed:          handlers.NewFeedHandler(svc.Matching),
		Bids:          handlers.NewBidHandler(svc.Bids),
		Ops:           handlers.NewOpsHandler(svc.Ops),
		RankingConfig: handlers.NewRankingConfigHandler(svc.RankingConfig),
	}
}
