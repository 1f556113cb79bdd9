package ops

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Config weights the operational signals. Weights are non-negative.
type Config struct {
	HighValueBudget  int64    `json:"highValueBudget"`
	UrgentCategories []string `json:"urgentCategories"`
	HotCategories    []string `json:"hotCategories"`

	HighValue              float64 `json:"highValue"`
	UrgentCategory         float64 `json:"urgentCategory"`
	HotCategory            float64 `json:"hotCategory"`
	NoFirstBid             float64 `json:"noFirstBid"`
	NoAttorneyMessage      float64 `json:"noAttorneyMessage"`
	QuotedNotSelected      float64 `json:"quotedNotSelected"`
	SelectedNoConversation float64 `json:"selectedNoConversation"`
	UrgencyBonus           float64 `json:"urgencyBonus"`
}

func DefaultConfig() Config {
	return Config{
		HighValueBudget:        10000,
		UrgentCategories:       []string{"criminal", "immigration"},
		HotCategories:          []string{"family"},
		HighValue:              25,
		UrgentCategory:         20,
		HotCategory:            10,
		NoFirstBid:             40,
		NoAttorneyMessage:      35,
		QuotedNotSelected:      15,
		SelectedNoConversation: 30,
		UrgencyBonus:           20,
	}
}

func (c Config) Normalize() Config {
	def := DefaultConfig()
	fix := func(v, d float64) float64 {
		if v < 0 {
			return d
		}
		return v
	}
	c.HighValue = fix(c.HighValue, def.HighValue)
	c.UrgentCategory = fix(c.UrgentCategory, def.UrgentCategory)
	c.HotCategory = fix(c.HotCategory, def.HotCategory)
	c.NoFirstBid = fix(c.NoFirstBid, def.NoFirstBid)
	c.NoAttorneyMessage = fix(c.NoAttorneyMessage, def.NoAttorneyMessage)
	c.QuotedNotSelected = fix(c.QuotedNotSelected, def.QuotedNotSelected)
	c.SelectedNoConversation = fix(c.SelectedNoConversation, def.SelectedNoConversation)
	c.UrgencyBonus = fix(c.UrgencyBonus, def.UrgencyBonus)
	// A zero threshold would tag every budgeted case as high value.
	if c.HighValueBudget <= 0 {
		c.HighValueBudget = def.HighValueBudget
	}
	c.UrgentCategories = lowerSet(c.UrgentCategories)
	c.HotCategories = lowerSet(c.HotCategories)
	return c
}

// DecodeConfig overlays a JSON document on the defaults.
func DecodeConfig(raw []byte, strict bool) (Config, error) {
	cfg := DefaultConfig()
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, fmt.Errorf("empty ops config document")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("decode ops config: %w", err)
	}
	return cfg.Normalize(), nil
}

func ValidateDocument(raw []byte) error {
	_, err := DecodeConfig(raw, true)
	return err
}

func lowerSet(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
