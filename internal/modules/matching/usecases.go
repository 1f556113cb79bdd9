package matching

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/casehall-backend/internal/data/repos"
	types "github.com/yungbote/casehall-backend/internal/domain"
	"github.com/yungbote/casehall-backend/internal/observability"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

const defaultFetchWindow = 300

// DocumentSource returns the raw config document of a feed key, or nil when
// none is stored.
type DocumentSource interface {
	Document(ctx context.Context, feedKey string) ([]byte, error)
}

type UsecasesDeps struct {
	DB      *gorm.DB
	Log     *logger.Logger
	Metrics *observability.Metrics

	Cases         repos.CaseRepo
	Bids          repos.BidRepo
	Attorneys     repos.AttorneyProfileRepo
	Conversations repos.ConversationRepo
	Engagements   repos.EngagementRepo
	Risk          repos.RiskSignalRepo

	Config DocumentSource
	// FetchWindow bounds how many candidates are scored per request.
	FetchWindow int
	Now         func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.FetchWindow <= 0 {
		deps.FetchWindow = defaultFetchWindow
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return Usecases{deps: deps}
}

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

// LoadRankingConfig never fails: a missing, unreadable or malformed document
// yields the defaults with active=false.
func (u Usecases) LoadRankingConfig(ctx context.Context) (RankingConfig, bool) {
	if u.deps.Config == nil {
		return DefaultRankingConfig(), false
	}
	raw, err := u.deps.Config.Document(ctx, types.FeedKeyCaseHall)
	if err != nil {
		u.deps.Log.Warn("ranking config read failed; using defaults", "feed_key", types.FeedKeyCaseHall, "error", err)
		u.deps.Metrics.IncFeedDegraded("config_read")
		return DefaultRankingConfig(), false
	}
	if raw == nil {
		return DefaultRankingConfig(), false
	}
	cfg, err := DecodeRankingConfig(raw, false)
	if err != nil {
		u.deps.Log.Warn("ranking config malformed; using defaults", "feed_key", types.FeedKeyCaseHall, "error", err)
		u.deps.Metrics.IncFeedDegraded("config_decode")
		return DefaultRankingConfig(), false
	}
	return cfg, true
}
