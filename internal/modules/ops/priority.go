package ops

import (
	"slices"
	"strings"
	"time"

	types "github.com/yungbote/casehall-backend/internal/domain"
)

const (
	TagHighValue              = "high_value"
	TagUrgentCategory         = "urgent_category"
	TagHotCategory            = "hot_category"
	TagNoFirstBid24h          = "sla_no_first_bid_24h"
	TagNoAttorneyMessage24h   = "sla_no_attorney_message_24h"
	TagQuotedNotSelected      = "bottleneck_quoted_not_selected"
	TagSelectedNoConversation = "bottleneck_selected_no_conversation"
	TagUrgent                 = "urgent"
)

const slaWindow = 24 * time.Hour

// Signals are the operational facts of one case.
type Signals struct {
	Case     *types.Case
	BidCount int
	// Conversation of the selected bid, nil when none exists.
	Conversation *types.Conversation
}

// Priority scores a case for the admin queue. It never mutates anything.
func Priority(s Signals, cfg Config, now time.Time) (float64, []string) {
	c := s.Case
	if c == nil {
		return 0, nil
	}
	score := 0.0
	tags := []string{}
	add := func(w float64, tag string) {
		score += w
		tags = append(tags, tag)
	}

	if c.BudgetMax != nil && *c.BudgetMax >= cfg.HighValueBudget {
		add(cfg.HighValue, TagHighValue)
	}
	category := strings.ToLower(strings.TrimSpace(c.Category))
	if category != "" && slices.Contains(cfg.UrgentCategories, category) {
		add(cfg.UrgentCategory, TagUrgentCategory)
	}
	if category != "" && slices.Contains(cfg.HotCategories, category) {
		add(cfg.HotCategory, TagHotCategory)
	}

	selected := c.SelectedBidID != nil
	published := strings.EqualFold(c.Status, types.CaseStatusOpen) && !selected
	if published && s.BidCount == 0 && now.Sub(c.CreatedAt) > slaWindow {
		add(cfg.NoFirstBid, TagNoFirstBid24h)
	}
	if selected && c.SelectedAt != nil && now.Sub(*c.SelectedAt) > slaWindow &&
		(s.Conversation == nil || s.Conversation.FirstAttorneyMessageAt == nil) {
		add(cfg.NoAttorneyMessage, TagNoAttorneyMessage24h)
	}
	if s.BidCount > 0 && !selected {
		add(cfg.QuotedNotSelected, TagQuotedNotSelected)
	}
	if selected && s.Conversation == nil {
		add(cfg.SelectedNoConversation, TagSelectedNoConversation)
	}
	switch strings.ToUpper(c.Urgency) {
	case types.UrgencyUrgent, types.UrgencyHigh:
		add(cfg.UrgencyBonus, TagUrgent)
	}
	return score, tags
}
