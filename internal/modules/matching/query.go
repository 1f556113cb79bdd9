package matching

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/casehall-backend/internal/data/repos"
	types "github.com/yungbote/casehall-backend/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50

	DeadlineWithin24h = "24h"
	DeadlineWithin7d  = "7d"
	DeadlineOverdue   = "overdue"
)

// FeedQuery is the attorney's case hall request.
type FeedQuery struct {
	Category       string
	StateCode      string
	ZipPrefix      string
	Urgency        string
	FeeMode        string
	BudgetMin      *int64
	BudgetMax      *int64
	MineBidOnly    bool
	DeadlineWindow string
	QuoteableOnly  bool
	// Reasons keeps only items carrying every listed reason.
	Reasons  []string
	Sort     string
	Page     int
	PageSize int
	// All bypasses pagination (export).
	All bool
}

// Normalize fills defaults and rejects malformed input.
func (q FeedQuery) Normalize() (FeedQuery, error) {
	q.Category = strings.TrimSpace(q.Category)
	q.StateCode = strings.ToUpper(strings.TrimSpace(q.StateCode))
	q.ZipPrefix = strings.TrimSpace(q.ZipPrefix)
	q.Urgency = strings.ToUpper(strings.TrimSpace(q.Urgency))
	q.FeeMode = strings.ToUpper(strings.TrimSpace(q.FeeMode))
	q.DeadlineWindow = strings.ToLower(strings.TrimSpace(q.DeadlineWindow))
	q.Sort = strings.ToLower(strings.TrimSpace(q.Sort))

	if q.ZipPrefix != "" {
		if len(q.ZipPrefix) > 5 || !allDigits(q.ZipPrefix) {
			return q, fmt.Errorf("zipPrefix must be 1-5 digits")
		}
	}
	switch q.Urgency {
	case "", types.UrgencyLow, types.UrgencyMedium, types.UrgencyHigh, types.UrgencyUrgent:
	default:
		return q, fmt.Errorf("unknown urgency %q", q.Urgency)
	}
	switch q.FeeMode {
	case "", types.FeeModeFixed, types.FeeModeHourly, types.FeeModeContingency, types.FeeModeNegotiable:
	default:
		return q, fmt.Errorf("unknown feeMode %q", q.FeeMode)
	}
	if q.BudgetMin != nil && *q.BudgetMin < 0 {
		return q, fmt.Errorf("budgetMin must be >= 0")
	}
	if q.BudgetMax != nil && *q.BudgetMax < 0 {
		return q, fmt.Errorf("budgetMax must be >= 0")
	}
	if q.BudgetMin != nil && q.BudgetMax != nil && *q.BudgetMin > *q.BudgetMax {
		return q, fmt.Errorf("budgetMin must be <= budgetMax")
	}
	switch q.DeadlineWindow {
	case "", DeadlineWithin24h, DeadlineWithin7d, DeadlineOverdue:
	default:
		return q, fmt.Errorf("unknown deadlineWindow %q", q.DeadlineWindow)
	}
	if q.Sort == "" {
		q.Sort = SortLatest
	}
	if !ValidSort(q.Sort) {
		return q, fmt.Errorf("unknown sort %q", q.Sort)
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Page < 1 {
		return q, fmt.Errorf("page must be >= 1")
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return q, fmt.Errorf("pageSize must be between 1 and %d", MaxPageSize)
	}
	reasons := q.Reasons[:0:0]
	for _, r := range q.Reasons {
		if r = strings.TrimSpace(r); r != "" {
			reasons = append(reasons, r)
		}
	}
	q.Reasons = reasons
	return q, nil
}

// Filter translates the query into a candidate filter at now.
func (q FeedQuery) Filter(attorneyProfileID uuid.UUID, now time.Time) repos.CaseFilter {
	f := repos.CaseFilter{
		Statuses:  []string{types.CaseStatusOpen, types.CaseStatusMatching},
		Category:  q.Category,
		StateCode: q.StateCode,
		ZipPrefix: q.ZipPrefix,
		Urgency:   q.Urgency,
		FeeMode:   q.FeeMode,
		BudgetMin: q.BudgetMin,
		BudgetMax: q.BudgetMax,
	}
	switch q.DeadlineWindow {
	case DeadlineWithin24h:
		after, before := now, now.Add(24*time.Hour)
		f.DeadlineAfter, f.DeadlineBefore = &after, &before
	case DeadlineWithin7d:
		after, before := now, now.Add(7*24*time.Hour)
		f.DeadlineAfter, f.DeadlineBefore = &after, &before
	case DeadlineOverdue:
		before := now
		f.DeadlineBefore = &before
	}
	if q.QuoteableOnly {
		at := now
		f.QuoteableAt = &at
	}
	if q.MineBidOnly {
		id := attorneyProfileID
		f.BidByAttorneyID = &id
	}
	return f
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
