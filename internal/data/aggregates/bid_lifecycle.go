package aggregates

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/casehall-backend/internal/data/repos"
	types "github.com/yungbote/casehall-backend/internal/domain"
	domainagg "github.com/yungbote/casehall-backend/internal/domain/aggregates"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
)

type BidLifecycleDeps struct {
	Base BaseDeps

	Cases         repos.CaseRepo
	Bids          repos.BidRepo
	BidVersions   repos.BidVersionRepo
	Conversations repos.ConversationRepo
	Engagements   repos.EngagementRepo
	StatusLogs    repos.CaseStatusLogRepo
}

type bidLifecycleAggregate struct {
	deps BidLifecycleDeps
}

func NewBidLifecycleAggregate(deps BidLifecycleDeps) domainagg.BidLifecycleAggregate {
	deps.Base = deps.Base.withDefaults()
	return &bidLifecycleAggregate{deps: deps}
}

func (a *bidLifecycleAggregate) Contract() domainagg.Contract {
	return domainagg.BidLifecycleContract
}

func (a *bidLifecycleAggregate) configured() bool {
	d := a.deps
	return d.Cases != nil && d.Bids != nil && d.BidVersions != nil &&
		d.Conversations != nil && d.Engagements != nil && d.StatusLogs != nil
}

const (
	bidReasonSubmitted  = "submitted"
	bidReasonRequoted   = "requoted"
	bidReasonWithdrawn  = "withdrawn"
	bidReasonSelected   = "selected by client"
	bidReasonOutcompete = "competing bid selected"

	caseLogBidSelected   = "bid selected"
	caseLogBidReselected = "bid re-selected"
	caseLogBidWithdrawn  = "bid withdrawn"
)

func (a *bidLifecycleAggregate) SubmitBid(ctx context.Context, in domainagg.SubmitBidInput) (domainagg.SubmitBidResult, error) {
	op := domainagg.BidLifecycleContract.Op("SubmitBid")
	var out domainagg.SubmitBidResult
	if in.CaseID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing case_id", nil)
	}
	if in.AttorneyProfileID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing attorney_profile_id", nil)
	}
	fee, err := normalizeFee(in.Fee)
	if err != nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "bid lifecycle repos not configured", nil)
	}
	at := normalizeAt(in.At)
	scope := strings.TrimSpace(in.ServiceScope)
	message := strings.TrimSpace(in.Message)

	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		c, err := a.deps.Cases.LockByID(dbc, in.CaseID)
		if err != nil {
			return err
		}
		if c == nil {
			return domainagg.NewReasonError(domainagg.CodeNotFound, domainagg.ReasonCaseNotFound, op, "case not found")
		}
		if !oneOf(c.Status, types.CaseStatusOpen, types.CaseStatusMatching) {
			return domainagg.Conflict(op, domainagg.ReasonCaseNotBiddable, fmt.Sprintf("case is %s", c.Status))
		}

		existing, err := a.deps.Bids.GetByCaseAndAttorney(dbc, c.ID, in.AttorneyProfileID)
		if err != nil {
			return err
		}
		if existing == nil {
			bid, err := a.createBid(dbc, c, in.AttorneyProfileID, fee, scope, message, at)
			if err != nil {
				return err
			}
			out = domainagg.SubmitBidResult{BidID: bid.ID, CaseID: c.ID, Status: bid.Status, Version: bid.Version, Created: true}
			return nil
		}

		if existing.Status == types.BidStatusAccepted || isSelected(c, existing.ID) {
			return domainagg.Conflict(op, domainagg.ReasonBidAccepted, "bid already accepted")
		}
		version, err := a.reopenBid(dbc, existing, fee, scope, message, at)
		if err != nil {
			return err
		}
		out = domainagg.SubmitBidResult{BidID: existing.ID, CaseID: c.ID, Status: types.BidStatusPending, Version: version}
		return nil
	})
	return out, err
}

func (a *bidLifecycleAggregate) createBid(dbc dbctx.Context, c *types.Case, attorneyID uuid.UUID, fee domainagg.FeeQuote, scope, message string, at time.Time) (*types.Bid, error) {
	bid := &types.Bid{
		CaseID:            c.ID,
		AttorneyProfileID: attorneyID,
		Status:            types.BidStatusPending,
		Version:           1,
		FeeMode:           fee.Mode,
		FeeMin:            fee.Min,
		FeeMax:            fee.Max,
		ServiceScope:      scope,
		Message:           message,
		ContactedAt:       at,
		CreatedAt:         at,
		UpdatedAt:         at,
	}
	if _, err := a.deps.Bids.Create(dbc, []*types.Bid{bid}); err != nil {
		return nil, err
	}
	_, err := a.deps.BidVersions.Create(dbc, []*types.BidVersion{
		bidVersionRow(bid.ID, 1, types.BidStatusPending, bidReasonSubmitted, fee, scope, message, at),
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

func (a *bidLifecycleAggregate) reopenBid(dbc dbctx.Context, bid *types.Bid, fee domainagg.FeeQuote, scope, message string, at time.Time) (int, error) {
	err := a.deps.Base.Guard.Advance(dbc, "bid", bid.ID, Expect{Version: bid.Version}, map[string]any{
		"status":        types.BidStatusPending,
		"fee_mode":      fee.Mode,
		"fee_min":       fee.Min,
		"fee_max":       fee.Max,
		"service_scope": scope,
		"message":       message,
		"contacted_at":  at,
		"updated_at":    at,
	})
	if err != nil {
		return 0, err
	}
	next := bid.Version + 1
	_, err = a.deps.BidVersions.Create(dbc, []*types.BidVersion{
		bidVersionRow(bid.ID, next, types.BidStatusPending, bidReasonRequoted, fee, scope, message, at),
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (a *bidLifecycleAggregate) WithdrawBid(ctx context.Context, in domainagg.WithdrawBidInput) (domainagg.WithdrawBidResult, error) {
	op := domainagg.BidLifecycleContract.Op("WithdrawBid")
	var out domainagg.WithdrawBidResult
	if in.BidID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing bid_id", nil)
	}
	if in.AttorneyProfileID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing attorney_profile_id", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "bid lifecycle repos not configured", nil)
	}
	at := normalizeAt(in.At)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		probe, err := a.deps.Bids.GetByID(dbc, in.BidID)
		if err != nil {
			return err
		}
		if probe == nil || probe.AttorneyProfileID != in.AttorneyProfileID {
			return domainagg.NewReasonError(domainagg.CodeNotFound, domainagg.ReasonBidNotFound, op, "bid not found")
		}

		c, err := a.deps.Cases.LockByID(dbc, probe.CaseID)
		if err != nil {
			return err
		}
		if c == nil {
			return InvariantError("bid references a missing case")
		}
		// Re-read under the case lock; bid writes all serialize on it.
		bid, err := a.deps.Bids.GetByID(dbc, in.BidID)
		if err != nil {
			return err
		}
		if bid == nil {
			return domainagg.NewReasonError(domainagg.CodeNotFound, domainagg.ReasonBidNotFound, op, "bid not found")
		}

		switch {
		case bid.Status == types.BidStatusWithdrawn:
			return domainagg.Conflict(op, domainagg.ReasonAlreadyWithdrawn, "bid already withdrawn")
		case bid.Status == types.BidStatusAccepted:
			return domainagg.Conflict(op, domainagg.ReasonBidAccepted, "accepted bids cannot be withdrawn")
		case isSelected(c, bid.ID):
			return domainagg.Conflict(op, domainagg.ReasonBidSelected, "selected bids cannot be withdrawn")
		}

		if err := a.deps.Base.Guard.Advance(dbc, "bid", bid.ID,
			Expect{Version: bid.Version, Statuses: []string{types.BidStatusPending, types.BidStatusRejected}},
			map[string]any{
				"status":     types.BidStatusWithdrawn,
				"updated_at": at,
			}); err != nil {
			return err
		}
		next := bid.Version + 1
		fee := domainagg.FeeQuote{Mode: bid.FeeMode, Min: bid.FeeMin, Max: bid.FeeMax}
		if _, err := a.deps.BidVersions.Create(dbc, []*types.BidVersion{
			bidVersionRow(bid.ID, next, types.BidStatusWithdrawn, bidReasonWithdrawn, fee, bid.ServiceScope, bid.Message, at),
		}); err != nil {
			return err
		}

		bidID := bid.ID
		if _, err := a.deps.StatusLogs.Create(dbc, []*types.CaseStatusLog{{
			CaseID:      c.ID,
			BidID:       &bidID,
			ActorUserID: in.ActorUserID,
			FromStatus:  c.Status,
			ToStatus:    c.Status,
			Reason:      caseLogBidWithdrawn,
			CreatedAt:   at,
		}}); err != nil {
			return err
		}

		out = domainagg.WithdrawBidResult{BidID: bid.ID, CaseID: c.ID, Status: types.BidStatusWithdrawn, Version: next}
		return nil
	})
	return out, err
}

func (a *bidLifecycleAggregate) SelectBid(ctx context.Context, in domainagg.SelectBidInput) (domainagg.SelectBidResult, error) {
	op := domainagg.BidLifecycleContract.Op("SelectBid")
	var out domainagg.SelectBidResult
	if in.CaseID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing case_id", nil)
	}
	if in.BidID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing bid_id", nil)
	}
	if in.ClientUserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing client_user_id", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "bid lifecycle repos not configured", nil)
	}
	at := normalizeAt(in.At)
	withConversation := in.CreateConversation == nil || *in.CreateConversation

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		c, err := a.deps.Cases.LockByID(dbc, in.CaseID)
		if err != nil {
			return err
		}
		if c == nil || c.ClientUserID != in.ClientUserID {
			return domainagg.NewReasonError(domainagg.CodeNotFound, domainagg.ReasonCaseNotFound, op, "case not found")
		}
		if !oneOf(c.Status, types.CaseStatusOpen, types.CaseStatusMatching) {
			return domainagg.Conflict(op, domainagg.ReasonCaseNotSelectable, fmt.Sprintf("case is %s", c.Status))
		}

		bids, err := a.deps.Bids.LockByCase(dbc, c.ID)
		if err != nil {
			return err
		}
		var target *types.Bid
		for _, b := range bids {
			if b != nil && b.ID == in.BidID {
				target = b
				break
			}
		}
		if target == nil || target.Status == types.BidStatusWithdrawn {
			return domainagg.NewReasonError(domainagg.CodeNotFound, domainagg.ReasonBidNotFound, op, "bid not found")
		}
		reselect := isSelected(c, target.ID) && target.Status == types.BidStatusAccepted

		// Competitors leave ACCEPTED before the target enters it so the
		// one-accepted-per-case index never sees two rows.
		rejected, err := a.rejectCompetitors(dbc, c.ID, target.ID, bids, at)
		if err != nil {
			return err
		}

		if target.Status != types.BidStatusAccepted {
			err := a.deps.Base.Guard.Advance(dbc, "bid", target.ID, Expect{Version: target.Version}, map[string]any{
				"status":     types.BidStatusAccepted,
				"updated_at": at,
			})
			if err != nil {
				return err
			}
			fee := domainagg.FeeQuote{Mode: target.FeeMode, Min: target.FeeMin, Max: target.FeeMax}
			if _, err := a.deps.BidVersions.Create(dbc, []*types.BidVersion{
				bidVersionRow(target.ID, target.Version+1, types.BidStatusAccepted, bidReasonSelected, fee, target.ServiceScope, target.Message, at),
			}); err != nil {
				return err
			}
		}

		selectedAt := at
		if reselect && c.SelectedAt != nil {
			selectedAt = c.SelectedAt.UTC()
		}
		if err := a.deps.Cases.UpdateFields(dbc, c.ID, map[string]interface{}{
			"status":          types.CaseStatusMatching,
			"selected_bid_id": target.ID,
			"selected_at":     selectedAt,
			"updated_at":      at,
		}); err != nil {
			return err
		}

		var conversationID *uuid.UUID
		if withConversation {
			id, err := a.ensureConversation(dbc, c, target, at)
			if err != nil {
				return err
			}
			conversationID = &id
		}
		engagementID, err := a.ensureEngagement(dbc, c, target, at)
		if err != nil {
			return err
		}

		reason := caseLogBidSelected
		if reselect {
			reason = caseLogBidReselected
		}
		targetID := target.ID
		if _, err := a.deps.StatusLogs.Create(dbc, []*types.CaseStatusLog{{
			CaseID:      c.ID,
			BidID:       &targetID,
			ActorUserID: in.ClientUserID,
			FromStatus:  c.Status,
			ToStatus:    types.CaseStatusMatching,
			Reason:      reason,
			CreatedAt:   at,
		}}); err != nil {
			return err
		}

		out = domainagg.SelectBidResult{
			CaseID:            c.ID,
			CaseStatus:        types.CaseStatusMatching,
			SelectedBidID:     target.ID,
			AttorneyProfileID: target.AttorneyProfileID,
			ConversationID:    conversationID,
			EngagementID:      engagementID,
			RejectedBidIDs:    rejected,
			Reselected:        reselect,
			SelectedAt:        selectedAt,
		}
		return nil
	})
	return out, err
}

func (a *bidLifecycleAggregate) rejectCompetitors(dbc dbctx.Context, caseID, targetID uuid.UUID, bids []*types.Bid, at time.Time) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(bids))
	versions := make([]*types.BidVersion, 0, len(bids))
	for _, b := range bids {
		if b == nil || b.ID == targetID {
			continue
		}
		if b.Status != types.BidStatusPending && b.Status != types.BidStatusAccepted {
			continue
		}
		ids = append(ids, b.ID)
		fee := domainagg.FeeQuote{Mode: b.FeeMode, Min: b.FeeMin, Max: b.FeeMax}
		versions = append(versions, bidVersionRow(b.ID, b.Version+1, types.BidStatusRejected, bidReasonOutcompete, fee, b.ServiceScope, b.Message, at))
	}
	if len(ids) == 0 {
		return []uuid.UUID{}, nil
	}
	n, err := a.deps.Bids.RejectByIDs(dbc, caseID, ids, at)
	if err != nil {
		return nil, err
	}
	if int(n) != len(ids) {
		return nil, ConflictError(fmt.Sprintf("rejected %d of %d competing bids", n, len(ids)))
	}
	if _, err := a.deps.BidVersions.Create(dbc, versions); err != nil {
		return nil, err
	}
	if _, err := a.deps.Engagements.CancelByBidIDs(dbc, ids, at); err != nil {
		return nil, err
	}
	return ids, nil
}

func (a *bidLifecycleAggregate) ensureConversation(dbc dbctx.Context, c *types.Case, bid *types.Bid, at time.Time) (uuid.UUID, error) {
	existing, err := a.deps.Conversations.GetByBidID(dbc, bid.ID)
	if err != nil {
		return uuid.Nil, err
	}
	if existing == nil {
		row := &types.Conversation{
			BidID:             bid.ID,
			CaseID:            c.ID,
			ClientUserID:      c.ClientUserID,
			AttorneyProfileID: bid.AttorneyProfileID,
			Status:            types.ConversationStatusOpen,
			CreatedAt:         at,
			UpdatedAt:         at,
		}
		if _, err := a.deps.Conversations.Create(dbc, []*types.Conversation{row}); err != nil {
			return uuid.Nil, err
		}
		return row.ID, nil
	}
	if existing.Status != types.ConversationStatusOpen {
		if err := a.deps.Conversations.UpdateFields(dbc, existing.ID, map[string]interface{}{
			"status":     types.ConversationStatusOpen,
			"updated_at": at,
		}); err != nil {
			return uuid.Nil, err
		}
	}
	return existing.ID, nil
}

func (a *bidLifecycleAggregate) ensureEngagement(dbc dbctx.Context, c *types.Case, bid *types.Bid, at time.Time) (uuid.UUID, error) {
	existing, err := a.deps.Engagements.GetByBidID(dbc, bid.ID)
	if err != nil {
		return uuid.Nil, err
	}
	if existing == nil {
		row := &types.EngagementConfirmation{
			BidID:             bid.ID,
			CaseID:            c.ID,
			AttorneyProfileID: bid.AttorneyProfileID,
			ClientUserID:      c.ClientUserID,
			Status:            types.EngagementPendingAttorney,
			FeeMode:           bid.FeeMode,
			FeeMin:            bid.FeeMin,
			FeeMax:            bid.FeeMax,
			CreatedAt:         at,
			UpdatedAt:         at,
		}
		if _, err := a.deps.Engagements.Create(dbc, []*types.EngagementConfirmation{row}); err != nil {
			return uuid.Nil, err
		}
		return row.ID, nil
	}
	// Every selection restarts confirmation, whatever state the row was in.
	if err := a.deps.Engagements.UpdateFields(dbc, existing.ID, map[string]interface{}{
		"status":     types.EngagementPendingAttorney,
		"fee_mode":   bid.FeeMode,
		"fee_min":    bid.FeeMin,
		"fee_max":    bid.FeeMax,
		"updated_at": at,
	}); err != nil {
		return uuid.Nil, err
	}
	return existing.ID, nil
}

func isSelected(c *types.Case, bidID uuid.UUID) bool {
	return c != nil && c.SelectedBidID != nil && *c.SelectedBidID == bidID
}

func normalizeFee(fee domainagg.FeeQuote) (domainagg.FeeQuote, error) {
	fee.Mode = strings.ToUpper(strings.TrimSpace(fee.Mode))
	switch fee.Mode {
	case "", types.FeeModeFixed, types.FeeModeHourly, types.FeeModeContingency, types.FeeModeNegotiable:
	default:
		return fee, fmt.Errorf("unknown fee mode %q", fee.Mode)
	}
	if fee.Min != nil && *fee.Min < 0 {
		return fee, fmt.Errorf("fee_min must be >= 0")
	}
	if fee.Max != nil && *fee.Max < 0 {
		return fee, fmt.Errorf("fee_max must be >= 0")
	}
	if fee.Min != nil && fee.Max != nil && *fee.Min > *fee.Max {
		return fee, fmt.Errorf("fee_min must be <= fee_max")
	}
	return fee, nil
}

func bidVersionRow(bidID uuid.UUID, version int, status, reason string, fee domainagg.FeeQuote, scope, message string, at time.Time) *types.BidVersion {
	snap, _ := json.Marshal(map[string]any{
		"fee_mode":      fee.Mode,
		"fee_min":       fee.Min,
		"fee_max":       fee.Max,
		"service_scope": scope,
		"message":       message,
	})
	return &types.BidVersion{
		BidID:     bidID,
		Version:   version,
		Status:    status,
		Reason:    reason,
		Snapshot:  datatypes.JSON(snap),
		CreatedAt: at,
	}
}
