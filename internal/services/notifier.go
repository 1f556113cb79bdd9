package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/casehall-backend/internal/domain/aggregates"
	"github.com/yungbote/casehall-backend/internal/realtime"
)

// =========================
// Bid notifier
// =========================

type BidNotifier interface {
	BidSelected(ctx context.Context, res domainagg.SelectBidResult)
	BidWithdrawn(ctx context.Context, res domainagg.WithdrawBidResult, attorneyProfileID uuid.UUID)
}

type bidNotifier struct {
	emit EventEmitter
	now  func() time.Time
}

func NewBidNotifier(emit EventEmitter) BidNotifier {
	return &bidNotifier{emit: emit, now: time.Now}
}

// BidSelected tells the case, the winning attorney and every rejected bid.
func (n *bidNotifier) BidSelected(ctx context.Context, res domainagg.SelectBidResult) {
	if n == nil || n.emit == nil || res.CaseID == uuid.Nil {
		return
	}
	at := n.now().UTC()
	data := map[string]any{
		"case_id":             res.CaseID,
		"case_status":         res.CaseStatus,
		"selected_bid_id":     res.SelectedBidID,
		"attorney_profile_id": res.AttorneyProfileID,
		"engagement_id":       res.EngagementID,
		"rejected_bid_ids":    res.RejectedBidIDs,
		"reselected":          res.Reselected,
	}
	if res.ConversationID != nil {
		data["conversation_id"] = *res.ConversationID
	}
	n.emit.Emit(ctx, realtime.Event{
		Channel: realtime.CaseChannel(res.CaseID.String()),
		Event:   realtime.EventBidSelected,
		Data:    data,
		At:      at,
	})
	n.emit.Emit(ctx, realtime.Event{
		Channel: realtime.AttorneyChannel(res.AttorneyProfileID.String()),
		Event:   realtime.EventBidSelected,
		Data:    data,
		At:      at,
	})
	for _, id := range res.RejectedBidIDs {
		n.emit.Emit(ctx, realtime.Event{
			Channel: realtime.CaseChannel(res.CaseID.String()),
			Event:   realtime.EventBidRejected,
			Data:    map[string]any{"case_id": res.CaseID, "bid_id": id, "selected_bid_id": res.SelectedBidID},
			At:      at,
		})
	}
}

func (n *bidNotifier) BidWithdrawn(ctx context.Context, res domainagg.WithdrawBidResult, attorneyProfileID uuid.UUID) {
	if n == nil || n.emit == nil || res.BidID == uuid.Nil {
		return
	}
	n.emit.Emit(ctx, realtime.Event{
		Channel: realtime.CaseChannel(res.CaseID.String()),
		Event:   realtime.EventBidWithdrawn,
		Data: map[string]any{
			"case_id":             res.CaseID,
			"bid_id":              res.BidID,
			"attorney_profile_id": attorneyProfileID,
			"version":             res.Version,
		},
		At: n.now().UTC(),
	})
}
