package app

import (
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/casehall-backend/internal/data/aggregates"
	"github.com/yungbote/casehall-backend/internal/data/repos"
	types "github.com/yungbote/casehall-backend/internal/domain"
	domainagg "github.com/yungbote/casehall-backend/internal/domain/aggregates"
	"github.com/yungbote/casehall-backend/internal/modules/bids"
	"github.com/yungbote/casehall-backend/internal/modules/matching"
	"github.com/yungbote/casehall-backend/internal/modules/ops"
	"github.com/yungbote/casehall-backend/internal/observability"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
	"github.com/yungbote/casehall-backend/internal/services"
)

type Services struct {
	RankingConfig services.RankingConfigStore
	Lifecycle     domainagg.BidLifecycleAggregate
	Notifier      services.BidNotifier

	Matching matching.Usecases
	Ops      ops.Usecases
	Bids     bids.Usecases
}

// RankingConfigValidators maps each known feed key to its document check.
func RankingConfigValidators() map[string]services.DocumentValidator {
	return map[string]services.DocumentValidator{
		types.FeedKeyCaseHall:    matching.ValidateRankingDocument,
		types.FeedKeyOpsPriority: ops.ValidateDocument,
	}
}

func newRankingConfigStore(db *gorm.DB, log *logger.Logger, rs repos.Set, clients Clients, ttl time.Duration) services.RankingConfigStore {
	deps := services.RankingConfigStoreDeps{
		DB:         db,
		Log:        log,
		Repo:       rs.RankingConfig,
		Validators: RankingConfigValidators(),
	}
	// A nil *DocumentCache must not become a non-nil interface.
	if clients.Cache != nil {
		deps.Cache = clients.Cache
		deps.TTL = ttl
	}
	return services.NewRankingConfigStore(deps)
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, metrics *observability.Metrics, rs repos.Set, clients Clients) Services {
	log.Info("Wiring services...")

	store := newRankingConfigStore(db, log, rs, clients, cfg.RankingConfigCacheTTL)
	lifecycle := aggregates.NewBidLifecycleAggregate(aggregates.BidLifecycleDeps{
		Base: aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: aggregates.NewObservabilityHooks(metrics),
		},
		Cases:         rs.Cases,
		Bids:          rs.Bids,
		BidVersions:   rs.BidVersions,
		Conversations: rs.Conversations,
		Engagements:   rs.Engagements,
		StatusLogs:    rs.StatusLogs,
	})
	notifier := services.NewBidNotifier(&services.BusEmitter{Bus: clients.Bus, Log: log, Metrics: metrics})

	return Services{
		RankingConfig: store,
		Lifecycle:     lifecycle,
		Notifier:      notifier,
		Matching: matching.New(matching.UsecasesDeps{
			DB:            db,
			Log:           log,
			Metrics:       metrics,
			Cases:         rs.Cases,
			Bids:          rs.Bids,
			Attorneys:     rs.Attorneys,
			Conversations: rs.Conversations,
			Engagements:   rs.Engagements,
			Risk:          rs.Risk,
			Config:        store,
			FetchWindow:   cfg.FeedFetchWindow,
		}),
		Ops: ops.New(ops.UsecasesDeps{
			DB:            db,
			Log:           log,
			Metrics:       metrics,
			Cases:         rs.Cases,
			Bids:          rs.Bids,
			Conversations: rs.Conversations,
			Config:        store,
			FetchWindow:   cfg.OpsFetchWindow,
		}),
		Bids: bids.New(bids.UsecasesDeps{
			Log:       log,
			Lifecycle: lifecycle,
			Notifier:  notifier,
		}),
	}
}
