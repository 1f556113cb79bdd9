package matching

import (
	"fmt"
	"sort"
	"strings"

	types "github.com/yungbote/casehall-backend/internal/domain"
)

const (
	SortLatest         = "latest"
	SortQuotesDesc     = "quotes_desc"
	SortDeadlineAsc    = "deadline_asc"
	SortRecommended    = "recommended"
	SortBudgetDesc     = "budget_desc"
	SortLowCompetition = "low_competition"
)

const HintHighRisk = "high_risk"

// ScoredCase is one feed item.
type ScoredCase struct {
	Case      *types.Case `json:"case"`
	BidCount  int         `json:"bid_count"`
	HasBid    bool        `json:"has_bid"`
	Score     float64     `json:"score"`
	Reasons   []string    `json:"reasons"`
	RiskHints []string    `json:"risk_hints,omitempty"`

	risky bool
}

// RiskHints renders non-zero signal counts and flags a case as high risk when
// any enabled threshold is met.
func RiskHints(rc types.RiskCounts, cfg RankingConfig) ([]string, bool) {
	var hints []string
	if rc.RuleHits > 0 {
		hints = append(hints, fmt.Sprintf("rule_hits:%d", rc.RuleHits))
	}
	if rc.Reports > 0 {
		hints = append(hints, fmt.Sprintf("reports:%d", rc.Reports))
	}
	if rc.Disputes > 0 {
		hints = append(hints, fmt.Sprintf("disputes:%d", rc.Disputes))
	}
	high := (cfg.RiskRuleHitThreshold > 0 && rc.RuleHits >= cfg.RiskRuleHitThreshold) ||
		(cfg.RiskReportThreshold > 0 && rc.Reports >= cfg.RiskReportThreshold) ||
		(cfg.RiskDisputeThreshold > 0 && rc.Disputes >= cfg.RiskDisputeThreshold)
	if high {
		hints = append(hints, HintHighRisk)
	}
	return hints, high
}

func ValidSort(s string) bool {
	switch s {
	case SortLatest, SortQuotesDesc, SortDeadlineAsc, SortRecommended, SortBudgetDesc, SortLowCompetition:
		return true
	}
	return false
}

// SortItems orders items in place. Every mode falls back to created desc
// then id asc, so the order is total.
func SortItems(items []*ScoredCase, mode string) {
	var primary func(a, b *ScoredCase) int
	switch mode {
	case SortRecommended:
		primary = func(a, b *ScoredCase) int { return cmpDesc(a.Score, b.Score) }
	case SortQuotesDesc:
		primary = func(a, b *ScoredCase) int { return cmpDesc(a.BidCount, b.BidCount) }
	case SortLowCompetition:
		primary = func(a, b *ScoredCase) int { return cmpDesc(b.BidCount, a.BidCount) }
	case SortDeadlineAsc:
		primary = func(a, b *ScoredCase) int {
			da, db := a.Case.QuoteDeadline, b.Case.QuoteDeadline
			switch {
			case da == nil && db == nil:
				return 0
			case da == nil:
				return 1
			case db == nil:
				return -1
			case da.Before(*db):
				return -1
			case db.Before(*da):
				return 1
			}
			return 0
		}
	case SortBudgetDesc:
		primary = func(a, b *ScoredCase) int {
			ba, bb := a.Case.BudgetMax, b.Case.BudgetMax
			switch {
			case ba == nil && bb == nil:
				return 0
			case ba == nil:
				return 1
			case bb == nil:
				return -1
			}
			return cmpDesc(*ba, *bb)
		}
	default:
		primary = func(a, b *ScoredCase) int { return 0 }
	}
	sort.SliceStable(items, func(i, j int) bool {
		if c := primary(items[i], items[j]); c != 0 {
			return c < 0
		}
		return tieBreakLess(items[i], items[j])
	})
}

func tieBreakLess(a, b *ScoredCase) bool {
	ca, cb := a.Case.CreatedAt, b.Case.CreatedAt
	if !ca.Equal(cb) {
		return ca.After(cb)
	}
	return a.Case.ID.String() < b.Case.ID.String()
}

func cmpDesc[T int | int64 | float64](a, b T) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}

// DemoteHighRisk applies the penalty to risky items and moves them after the
// rest, keeping relative order in both parts. It returns the split point.
func DemoteHighRisk(items []*ScoredCase, penalty float64) ([]*ScoredCase, int) {
	if penalty <= 0 {
		return items, len(items)
	}
	safe := make([]*ScoredCase, 0, len(items))
	var risky []*ScoredCase
	for _, it := range items {
		if it.risky {
			it.Score -= penalty
			risky = append(risky, it)
			continue
		}
		safe = append(safe, it)
	}
	return append(safe, risky...), len(safe)
}

// ApplyExposureCap limits how many items of one category appear in the first
// window positions. Overflow items move to the tail in relative order and are
// tagged with the exposure cap reason.
func ApplyExposureCap(items []*ScoredCase, window, capPerCategory int) []*ScoredCase {
	if window <= 0 || capPerCategory <= 0 || len(items) == 0 {
		return items
	}
	out := make([]*ScoredCase, 0, len(items))
	var deferred []*ScoredCase
	counts := map[string]int{}
	for i, it := range items {
		if len(out) >= window {
			out = append(out, items[i:]...)
			break
		}
		cat := normalizeCategory(it.Case.Category)
		if counts[cat] >= capPerCategory {
			it.Reasons = append(it.Reasons, ReasonExposureCapped)
			deferred = append(deferred, it)
			continue
		}
		counts[cat]++
		out = append(out, it)
	}
	return append(out, deferred...)
}

// HasAllReasons reports whether every wanted reason is present.
func HasAllReasons(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if strings.EqualFold(h, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
