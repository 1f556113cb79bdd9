package domain

import "github.com/yungbote/casehall-backend/internal/domain/marketplace"

type Case = marketplace.Case
type Bid = marketplace.Bid
type BidVersion = marketplace.BidVersion
type Conversation = marketplace.Conversation
type EngagementConfirmation = marketplace.EngagementConfirmation
type CaseStatusLog = marketplace.CaseStatusLog
type AttorneyProfile = marketplace.AttorneyProfile
type CaseRuleHit = marketplace.CaseRuleHit
type CaseReport = marketplace.CaseReport
type CaseDispute = marketplace.CaseDispute
type RiskCounts = marketplace.RiskCounts
type RankingConfigRow = marketplace.RankingConfigRow

const (
	CaseStatusOpen      = marketplace.CaseStatusOpen
	CaseStatusMatching  = marketplace.CaseStatusMatching
	CaseStatusClosed    = marketplace.CaseStatusClosed
	CaseStatusCancelled = marketplace.CaseStatusCancelled

	BidStatusPending   = marketplace.BidStatusPending
	BidStatusAccepted  = marketplace.BidStatusAccepted
	BidStatusRejected  = marketplace.BidStatusRejected
	BidStatusWithdrawn = marketplace.BidStatusWithdrawn

	UrgencyLow    = marketplace.UrgencyLow
	UrgencyMedium = marketplace.UrgencyMedium
	UrgencyHigh   = marketplace.UrgencyHigh
	UrgencyUrgent = marketplace.UrgencyUrgent

	FeeModeFixed       = marketplace.FeeModeFixed
	FeeModeHourly      = marketplace.FeeModeHourly
	FeeModeContingency = marketplace.FeeModeContingency
	FeeModeNegotiable  = marketplace.FeeModeNegotiable

	ConversationStatusOpen   = marketplace.ConversationStatusOpen
	ConversationStatusClosed = marketplace.ConversationStatusClosed

	EngagementPendingAttorney = marketplace.EngagementPendingAttorney
	EngagementPendingClient   = marketplace.EngagementPendingClient
	EngagementActive          = marketplace.EngagementActive
	EngagementCancelled       = marketplace.EngagementCancelled

	FeedKeyCaseHall    = marketplace.FeedKeyCaseHall
	FeedKeyOpsPriority = marketplace.FeedKeyOpsPriority
)

// AllModels lists every persistent model for migrations.
func AllModels() []interface{} { return marketplace.All() }
