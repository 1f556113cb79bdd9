package matching

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/casehall-backend/internal/domain"
)

const (
	ReasonUnquoted       = "unquoted"
	ReasonQuoteable      = "quoteable"
	ReasonSoonDeadline   = "24h deadline"
	ReasonUrgent         = "urgent"
	ReasonHighUrgency    = "high urgency"
	ReasonMediumUrgency  = "medium urgency"
	ReasonCategoryMatch  = "category match"
	ReasonStateMatch     = "state match"
	ReasonRecent         = "recent"
	ReasonZipProximity   = "zip proximity"
	ReasonAllowlisted    = "allowlisted category"
	ReasonExposureCapped = "category exposure cap"
)

const (
	alreadyBidPenalty   = 120.0
	pastDeadlinePenalty = 200.0
	mediumUrgencyBoost  = 20.0
	soonDeadlineWindow  = 24 * time.Hour
)

// AttorneyContext is derived per request from the attorney profile and load.
type AttorneyContext struct {
	ProfileID     uuid.UUID
	Specialties   map[string]struct{}
	ServiceStates map[string]struct{}
	Zip           string
	// ExposureLoad counts open conversations plus pending engagements.
	ExposureLoad int
}

// NewAttorneyContext lowercases specialties and uppercases states so matching
// is case-insensitive.
func NewAttorneyContext(p *types.AttorneyProfile, load int) AttorneyContext {
	ac := AttorneyContext{
		Specialties:   map[string]struct{}{},
		ServiceStates: map[string]struct{}{},
		ExposureLoad:  load,
	}
	if p == nil {
		return ac
	}
	ac.ProfileID = p.ID
	ac.Zip = strings.TrimSpace(p.Zip)
	for _, s := range p.Specialties {
		if s = normalizeCategory(s); s != "" {
			ac.Specialties[s] = struct{}{}
		}
	}
	for _, s := range p.ServiceStates {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			ac.ServiceStates[s] = struct{}{}
		}
	}
	return ac
}

// Candidate is a case plus the bulk-read signals the scorer needs.
type Candidate struct {
	Case     *types.Case
	BidCount int
	HasBid   bool
	Risk     types.RiskCounts
}

// Score computes the relevance of one candidate for an attorney. It is pure:
// the same inputs always produce the same score and reasons.
func Score(c Candidate, ac AttorneyContext, cfg RankingConfig, v Variant, now time.Time) (float64, []string) {
	cs := c.Case
	if cs == nil {
		return 0, nil
	}
	w := cfg.WeightsFor(v)
	score := 0.0
	reasons := make([]string, 0, 8)

	if !c.HasBid {
		score += w.Unquoted
		reasons = append(reasons, ReasonUnquoted)
	} else {
		score -= alreadyBidPenalty
	}

	if cs.IsQuoteable(now) {
		score += w.Quoteable
		reasons = append(reasons, ReasonQuoteable)
		if cs.QuoteDeadline != nil && cs.QuoteDeadline.Sub(now) <= soonDeadlineWindow {
			score += w.SoonDeadline
			reasons = append(reasons, ReasonSoonDeadline)
		}
	} else {
		score -= pastDeadlinePenalty
	}

	switch strings.ToUpper(strings.TrimSpace(cs.Urgency)) {
	case types.UrgencyUrgent:
		score += w.Urgent
		reasons = append(reasons, ReasonUrgent)
	case types.UrgencyHigh:
		score += w.High
		reasons = append(reasons, ReasonHighUrgency)
	case types.UrgencyMedium:
		score += mediumUrgencyBoost
		reasons = append(reasons, ReasonMediumUrgency)
	}

	category := normalizeCategory(cs.Category)
	if _, ok := ac.Specialties[category]; ok && category != "" {
		score += w.CategoryMatch
		reasons = append(reasons, ReasonCategoryMatch)
	}
	state := strings.ToUpper(strings.TrimSpace(cs.StateCode))
	if _, ok := ac.ServiceStates[state]; ok && state != "" {
		score += w.StateMatch
		reasons = append(reasons, ReasonStateMatch)
	}

	ageHours := math.Max(now.Sub(cs.CreatedAt).Hours(), 0)
	if boost := math.Max(w.RecencyMaxBoost-ageHours, 0); boost > 0 {
		score += boost
		reasons = append(reasons, ReasonRecent)
	}

	if f := zipProximityFactor(cs.Zip, ac.Zip); f > 0 && w.ZipProximity > 0 {
		score += f * w.ZipProximity
		reasons = append(reasons, ReasonZipProximity)
	}

	score -= math.Min(float64(max(c.BidCount, 0))*w.BidCrowdingPenaltyPerBid, w.BidCrowdingPenaltyCap)

	if len(cfg.CategoryAllowlist) > 0 {
		if containsString(cfg.CategoryAllowlist, category) {
			score += cfg.AllowlistBoost
			reasons = append(reasons, ReasonAllowlisted)
		} else {
			score -= cfg.NonAllowlistPenalty
		}
	}
	if containsString(cfg.CategoryDenylist, category) {
		score -= cfg.DenylistPenalty
	}

	score -= exposurePenalty(ac.ExposureLoad, cfg)
	return score, reasons
}

// exposurePenalty throttles attorneys carrying more than the soft cap. It is
// the same for every case of one request.
func exposurePenalty(load int, cfg RankingConfig) float64 {
	if cfg.ExposureSoftCap <= 0 || load <= cfg.ExposureSoftCap {
		return 0
	}
	return float64(load-cfg.ExposureSoftCap) * cfg.ExposurePenaltyPerExtraUnit
}

// zipProximityFactor compares the first three digits of two zips.
func zipProximityFactor(a, b string) float64 {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0
	}
	common := 0
	for i := 0; i < 3 && i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			break
		}
		common++
	}
	switch common {
	case 3:
		return 1.0
	case 2:
		return 0.5
	case 1:
		return 0.2
	}
	return 0
}

func containsString(list []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
