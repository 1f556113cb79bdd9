package matching

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Weights are the per-variant scoring coefficients. All are non-negative;
// penalties are subtracted by the scorer.
type Weights struct {
	Unquoted                 float64 `json:"unquoted"`
	Quoteable                float64 `json:"quoteable"`
	SoonDeadline             float64 `json:"soonDeadline"`
	Urgent                   float64 `json:"urgent"`
	High                     float64 `json:"high"`
	CategoryMatch            float64 `json:"categoryMatch"`
	StateMatch               float64 `json:"stateMatch"`
	RecencyMaxBoost          float64 `json:"recencyMaxBoost"`
	ZipProximity             float64 `json:"zipProximity"`
	BidCrowdingPenaltyPerBid float64 `json:"bidCrowdingPenaltyPerBid"`
	BidCrowdingPenaltyCap    float64 `json:"bidCrowdingPenaltyCap"`
}

// RankingConfig is the decoded case hall ranking document.
type RankingConfig struct {
	ABEnabled      bool    `json:"abEnabled"`
	RolloutPercent int     `json:"rolloutPercent"`
	VariantA       Weights `json:"variantA"`
	VariantB       Weights `json:"variantB"`

	CategoryAllowlist   []string `json:"categoryAllowlist"`
	CategoryDenylist    []string `json:"categoryDenylist"`
	AllowlistBoost      float64  `json:"allowlistBoost"`
	NonAllowlistPenalty float64  `json:"nonAllowlistPenalty"`
	DenylistPenalty     float64  `json:"denylistPenalty"`

	// ExposureWindow or MaxPerCategoryInTopN of 0 disables the category cap.
	ExposureWindow       int `json:"exposureWindow"`
	MaxPerCategoryInTopN int `json:"maxPerCategoryInTopN"`

	// ExposureSoftCap of 0 disables the attorney load throttle.
	ExposureSoftCap             int     `json:"exposureSoftCap"`
	ExposurePenaltyPerExtraUnit float64 `json:"exposurePenaltyPerExtraUnit"`

	// A threshold of 0 disables that trigger.
	RiskRuleHitThreshold int `json:"riskRuleHitThreshold"`
	RiskReportThreshold  int `json:"riskReportThreshold"`
	RiskDisputeThreshold int `json:"riskDisputeThreshold"`
	// HighRiskPenalty of 0 disables risk demotion.
	HighRiskPenalty float64 `json:"highRiskPenalty"`
}

func DefaultWeights() Weights {
	return Weights{
		Unquoted:                 30,
		Quoteable:                20,
		SoonDeadline:             15,
		Urgent:                   40,
		High:                     25,
		CategoryMatch:            35,
		StateMatch:               20,
		RecencyMaxBoost:          72,
		ZipProximity:             15,
		BidCrowdingPenaltyPerBid: 4,
		BidCrowdingPenaltyCap:    40,
	}
}

// DefaultRankingConfig is the neutral config served when no document is active.
func DefaultRankingConfig() RankingConfig {
	w := DefaultWeights()
	return RankingConfig{
		VariantA:                    w,
		VariantB:                    w,
		AllowlistBoost:              10,
		NonAllowlistPenalty:         10,
		DenylistPenalty:             25,
		ExposureWindow:              10,
		MaxPerCategoryInTopN:        3,
		ExposureSoftCap:             10,
		ExposurePenaltyPerExtraUnit: 2,
		RiskRuleHitThreshold:        3,
		RiskReportThreshold:         2,
		RiskDisputeThreshold:        1,
		HighRiskPenalty:             50,
	}
}

// Normalize replaces negative weights with their defaults and clamps ranges.
func (c RankingConfig) Normalize() RankingConfig {
	def := DefaultRankingConfig()
	c.VariantA = c.VariantA.normalize(def.VariantA)
	c.VariantB = c.VariantB.normalize(def.VariantB)
	c.RolloutPercent = clampInt(c.RolloutPercent, 0, 100)
	c.AllowlistBoost = nonNegative(c.AllowlistBoost, def.AllowlistBoost)
	c.NonAllowlistPenalty = nonNegative(c.NonAllowlistPenalty, def.NonAllowlistPenalty)
	c.DenylistPenalty = nonNegative(c.DenylistPenalty, def.DenylistPenalty)
	c.ExposurePenaltyPerExtraUnit = nonNegative(c.ExposurePenaltyPerExtraUnit, def.ExposurePenaltyPerExtraUnit)
	c.HighRiskPenalty = nonNegative(c.HighRiskPenalty, def.HighRiskPenalty)
	c.ExposureWindow = max(c.ExposureWindow, 0)
	c.MaxPerCategoryInTopN = max(c.MaxPerCategoryInTopN, 0)
	c.ExposureSoftCap = max(c.ExposureSoftCap, 0)
	c.RiskRuleHitThreshold = max(c.RiskRuleHitThreshold, 0)
	c.RiskReportThreshold = max(c.RiskReportThreshold, 0)
	c.RiskDisputeThreshold = max(c.RiskDisputeThreshold, 0)
	c.CategoryAllowlist = normalizeCategories(c.CategoryAllowlist)
	c.CategoryDenylist = normalizeCategories(c.CategoryDenylist)
	return c
}

func (w Weights) normalize(def Weights) Weights {
	w.Unquoted = nonNegative(w.Unquoted, def.Unquoted)
	w.Quoteable = nonNegative(w.Quoteable, def.Quoteable)
	w.SoonDeadline = nonNegative(w.SoonDeadline, def.SoonDeadline)
	w.Urgent = nonNegative(w.Urgent, def.Urgent)
	w.High = nonNegative(w.High, def.High)
	w.CategoryMatch = nonNegative(w.CategoryMatch, def.CategoryMatch)
	w.StateMatch = nonNegative(w.StateMatch, def.StateMatch)
	w.RecencyMaxBoost = nonNegative(w.RecencyMaxBoost, def.RecencyMaxBoost)
	w.ZipProximity = nonNegative(w.ZipProximity, def.ZipProximity)
	w.BidCrowdingPenaltyPerBid = nonNegative(w.BidCrowdingPenaltyPerBid, def.BidCrowdingPenaltyPerBid)
	w.BidCrowdingPenaltyCap = nonNegative(w.BidCrowdingPenaltyCap, def.BidCrowdingPenaltyCap)
	return w
}

// WeightsFor returns the weight set of a variant.
func (c RankingConfig) WeightsFor(v Variant) Weights {
	if v == VariantB {
		return c.VariantB
	}
	return c.VariantA
}

// DecodeRankingConfig overlays a JSON document on the defaults. Fields absent
// from the document keep their default; an absent variantB copies variantA.
// With strict set, unknown fields are rejected.
func DecodeRankingConfig(raw []byte, strict bool) (RankingConfig, error) {
	cfg := DefaultRankingConfig()
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, fmt.Errorf("empty ranking config document")
	}
	var doc struct {
		RankingConfig
		VariantB json.RawMessage `json:"variantB"`
	}
	doc.RankingConfig = cfg
	dec := json.NewDecoder(bytes.NewReader(raw))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&doc); err != nil {
		return cfg, fmt.Errorf("decode ranking config: %w", err)
	}
	out := doc.RankingConfig
	out.VariantB = out.VariantA
	if len(doc.VariantB) > 0 && string(doc.VariantB) != "null" {
		if err := json.Unmarshal(doc.VariantB, &out.VariantB); err != nil {
			return cfg, fmt.Errorf("decode variantB: %w", err)
		}
	}
	return out.Normalize(), nil
}

// ValidateRankingDocument is the write-side check used before a document is stored.
func ValidateRankingDocument(raw []byte) error {
	_, err := DecodeRankingConfig(raw, true)
	return err
}

func nonNegative(v, def float64) float64 {
	if v < 0 {
		return def
	}
	return v
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func normalizeCategories(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, c := range in {
		c = normalizeCategory(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func normalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
