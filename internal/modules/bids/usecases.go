package bids

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/casehall-backend/internal/domain/aggregates"
	"github.com/yungbote/casehall-backend/internal/platform/apierr"
	"github.com/yungbote/casehall-backend/internal/platform/ctxutil"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
	"github.com/yungbote/casehall-backend/internal/services"
)

type UsecasesDeps struct {
	Log       *logger.Logger
	Lifecycle domainagg.BidLifecycleAggregate
	// Notifier is optional.
	Notifier services.BidNotifier
	Now      func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
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

type SubmitInput struct {
	CaseID       uuid.UUID
	FeeMode      string
	FeeMin       *int64
	FeeMax       *int64
	ServiceScope string
	Message      string
}

type SelectInput struct {
	CaseID             uuid.UUID
	BidID              uuid.UUID
	CreateConversation *bool
}

func (u Usecases) SubmitBid(ctx context.Context, in SubmitInput) (domainagg.SubmitBidResult, error) {
	id := ctxutil.GetIdentity(ctx)
	if !id.IsAttorney() {
		return domainagg.SubmitBidResult{}, apierr.Forbidden("ATTORNEY_REQUIRED", fmt.Errorf("only attorneys can bid"))
	}
	if in.CaseID == uuid.Nil {
		return domainagg.SubmitBidResult{}, apierr.BadRequest("MISSING_CASE_ID", fmt.Errorf("caseId required"))
	}
	res, err := u.deps.Lifecycle.SubmitBid(ctx, domainagg.SubmitBidInput{
		CaseID:            in.CaseID,
		AttorneyProfileID: id.AttorneyProfileID,
		ActorUserID:       id.UserID,
		Fee:               domainagg.FeeQuote{Mode: strings.ToUpper(strings.TrimSpace(in.FeeMode)), Min: in.FeeMin, Max: in.FeeMax},
		ServiceScope:      strings.TrimSpace(in.ServiceScope),
		Message:           strings.TrimSpace(in.Message),
		At:                u.deps.Now(),
	})
	if err != nil {
		return res, u.fail("submit bid", err)
	}
	return res, nil
}

func (u Usecases) WithdrawBid(ctx context.Context, bidID uuid.UUID) (domainagg.WithdrawBidResult, error) {
	id := ctxutil.GetIdentity(ctx)
	if !id.IsAttorney() {
		return domainagg.WithdrawBidResult{}, apierr.Forbidden("ATTORNEY_REQUIRED", fmt.Errorf("only attorneys can withdraw bids"))
	}
	if bidID == uuid.Nil {
		return domainagg.WithdrawBidResult{}, apierr.BadRequest("MISSING_BID_ID", fmt.Errorf("bidId required"))
	}
	res, err := u.deps.Lifecycle.WithdrawBid(ctx, domainagg.WithdrawBidInput{
		BidID:             bidID,
		AttorneyProfileID: id.AttorneyProfileID,
		ActorUserID:       id.UserID,
		At:                u.deps.Now(),
	})
	if err != nil {
		return res, u.fail("withdraw bid", err)
	}
	if u.deps.Notifier != nil {
		u.deps.Notifier.BidWithdrawn(ctx, res, id.AttorneyProfileID)
	}
	return res, nil
}

// SelectBid runs the client's selection and notifies collaborators after commit.
func (u Usecases) SelectBid(ctx context.Context, in SelectInput) (domainagg.SelectBidResult, error) {
	id := ctxutil.GetIdentity(ctx)
	if !id.IsClient() {
		return domainagg.SelectBidResult{}, apierr.Forbidden("CLIENT_REQUIRED", fmt.Errorf("only the case owner can select a bid"))
	}
	if in.CaseID == uuid.Nil {
		return domainagg.SelectBidResult{}, apierr.BadRequest("MISSING_CASE_ID", fmt.Errorf("caseId required"))
	}
	if in.BidID == uuid.Nil {
		return domainagg.SelectBidResult{}, apierr.BadRequest("MISSING_BID_ID", fmt.Errorf("bidId required"))
	}
	res, err := u.deps.Lifecycle.SelectBid(ctx, domainagg.SelectBidInput{
		CaseID:             in.CaseID,
		BidID:              in.BidID,
		ClientUserID:       id.UserID,
		CreateConversation: in.CreateConversation,
		At:                 u.deps.Now(),
	})
	if err != nil {
		return res, u.fail("select bid", err)
	}
	if u.deps.Notifier != nil {
		u.deps.Notifier.BidSelected(ctx, res)
	}
	return res, nil
}

func (u Usecases) fail(op string, err error) error {
	ae := toAPIError(err)
	if ae.Status >= 500 {
		u.deps.Log.Error(op+" failed", "code", ae.Code, "error", err)
	} else {
		u.deps.Log.Debug(op+" rejected", "code", ae.Code, "error", err)
	}
	return ae
}
