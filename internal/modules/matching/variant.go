package matching

import (
	"hash/fnv"

	"github.com/google/uuid"
)

type Variant string

const (
	VariantA Variant = "A"
	VariantB Variant = "B"
)

// Bucket maps a key onto [0,100) with FNV-1a.
func Bucket(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % 100)
}

// AssignVariant is stable for an attorney as long as the rollout share does not change.
func AssignVariant(attorneyProfileID uuid.UUID, cfg RankingConfig) Variant {
	if !cfg.ABEnabled || cfg.RolloutPercent <= 0 {
		return VariantA
	}
	if Bucket(attorneyProfileID.String()) < cfg.RolloutPercent {
		return VariantB
	}
	return VariantA
}
