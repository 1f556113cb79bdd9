package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var BidLifecycleContract = Contract{
	Name:     "Marketplace.BidLifecycle",
	LockRoot: "case_posting",
	Owns:     []string{"bid", "bid_version", "case_status_log", "conversation", "engagement_confirmation"},
	Notes:    "Bid status, bid history, case selection, conversation and engagement bootstrap for one case.",
}

// BidLifecycleAggregate owns every mutation of bids on a case.
//
// Failures are *Error with codes CodeValidation, CodeNotFound, CodeConflict
// (reason-coded), CodeRetryable or CodeInternal.
type BidLifecycleAggregate interface {
	Aggregate

	// SubmitBid creates the caller's bid on a case or re-quotes an existing one.
	SubmitBid(ctx context.Context, in SubmitBidInput) (SubmitBidResult, error)

	// WithdrawBid retracts a bid that is neither accepted nor selected.
	WithdrawBid(ctx context.Context, in WithdrawBidInput) (WithdrawBidResult, error)

	// SelectBid makes one bid the case's selection, rejecting all competitors and
	// bootstrapping the conversation and engagement, in one transaction.
	SelectBid(ctx context.Context, in SelectBidInput) (SelectBidResult, error)
}

type FeeQuote struct {
	Mode string
	Min  *int64
	Max  *int64
}

type SubmitBidInput struct {
	CaseID            uuid.UUID
	AttorneyProfileID uuid.UUID
	ActorUserID       uuid.UUID
	Fee               FeeQuote
	ServiceScope      string
	Message           string
	At                time.Time
}

type SubmitBidResult struct {
	BidID   uuid.UUID
	CaseID  uuid.UUID
	Status  string
	Version int
	Created bool
}

type WithdrawBidInput struct {
	BidID             uuid.UUID
	AttorneyProfileID uuid.UUID
	ActorUserID       uuid.UUID
	At                time.Time
}

type WithdrawBidResult struct {
	BidID   uuid.UUID
	CaseID  uuid.UUID
	Status  string
	Version int
}

type SelectBidInput struct {
	CaseID       uuid.UUID
	BidID        uuid.UUID
	ClientUserID uuid.UUID
	// CreateConversation defaults to true when nil.
	CreateConversation *bool
	At                 time.Time
}

type SelectBidResult struct {
	CaseID            uuid.UUID
	CaseStatus        string
	SelectedBidID     uuid.UUID
	AttorneyProfileID uuid.UUID
	ConversationID    *uuid.UUID
	EngagementID      uuid.UUID
	RejectedBidIDs    []uuid.UUID
	// Reselected is true when the bid was already the case's selection.
	Reselected bool
	SelectedAt time.Time
}
