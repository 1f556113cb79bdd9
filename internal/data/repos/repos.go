package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/casehall-backend/internal/data/repos/marketplace"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

type CaseRepo = marketplace.CaseRepo
type BidRepo = marketplace.BidRepo
type BidVersionRepo = marketplace.BidVersionRepo
type ConversationRepo = marketplace.ConversationRepo
type EngagementRepo = marketplace.EngagementRepo
type CaseStatusLogRepo = marketplace.CaseStatusLogRepo
type AttorneyProfileRepo = marketplace.AttorneyProfileRepo
type RiskSignalRepo = marketplace.RiskSignalRepo
type RankingConfigRepo = marketplace.RankingConfigRepo

type CaseFilter = marketplace.CaseFilter
type SelectionDrift = marketplace.SelectionDrift

// Set bundles every table repo over one handle.
type Set struct {
	Cases         CaseRepo
	Bids          BidRepo
	BidVersions   BidVersionRepo
	Conversations ConversationRepo
	Engagements   EngagementRepo
	StatusLogs    CaseStatusLogRepo
	Attorneys     AttorneyProfileRepo
	Risk          RiskSignalRepo
	RankingConfig RankingConfigRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Cases:         marketplace.NewCaseRepo(db, log),
		Bids:          marketplace.NewBidRepo(db, log),
		BidVersions:   marketplace.NewBidVersionRepo(db, log),
		Conversations: marketplace.NewConversationRepo(db, log),
		Engagements:   marketplace.NewEngagementRepo(db, log),
		StatusLogs:    marketplace.NewCaseStatusLogRepo(db, log),
		Attorneys:     marketplace.NewAttorneyProfileRepo(db, log),
		Risk:          marketplace.NewRiskSignalRepo(db, log),
		RankingConfig: marketplace.NewRankingConfigRepo(db, log),
	}
}
