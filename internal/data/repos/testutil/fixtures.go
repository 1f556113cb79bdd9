package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/casehall-backend/internal/domain"
)

func SeedAttorney(tb testing.TB, ctx context.Context, tx *gorm.DB, specialties, states []string, zip string) *types.AttorneyProfile {
	tb.Helper()
	p := &types.AttorneyProfile{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		DisplayName:   "Counsel",
		Specialties:   datatypes.JSONSlice[string](specialties),
		ServiceStates: datatypes.JSONSlice[string](states),
		Zip:           zip,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed attorney: %v", err)
	}
	return p
}

// CaseOption mutates a case fixture before insert.
type CaseOption func(c *types.Case)

func WithCategory(cat string) CaseOption   { return func(c *types.Case) { c.Category = cat } }
func WithState(code string) CaseOption     { return func(c *types.Case) { c.StateCode = code } }
func WithZip(zip string) CaseOption        { return func(c *types.Case) { c.Zip = zip } }
func WithUrgency(u string) CaseOption      { return func(c *types.Case) { c.Urgency = u } }
func WithStatus(s string) CaseOption       { return func(c *types.Case) { c.Status = s } }
func WithClient(id uuid.UUID) CaseOption   { return func(c *types.Case) { c.ClientUserID = id } }
func WithCreatedAt(t time.Time) CaseOption { return func(c *types.Case) { c.CreatedAt = t } }
func WithDeadline(t time.Time) CaseOption  { return func(c *types.Case) { c.QuoteDeadline = &t } }
func WithFeeMode(mode string) CaseOption   { return func(c *types.Case) { c.FeeMode = mode } }
func WithBudget(min, max int64) CaseOption {
	return func(c *types.Case) { c.BudgetMin, c.BudgetMax = &min, &max }
}

func SeedCase(tb testing.TB, ctx context.Context, tx *gorm.DB, opts ...CaseOption) *types.Case {
	tb.Helper()
	now := time.Now().UTC()
	c := &types.Case{
		ID:           uuid.New(),
		ClientUserID: uuid.New(),
		Title:        "Need counsel",
		Category:     "family",
		StateCode:    "CA",
		Urgency:      types.UrgencyLow,
		Status:       types.CaseStatusOpen,
		FeeMode:      "FIXED",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed case: %v", err)
	}
	return c
}

// SeedBid inserts a bid with version 1 and its initial history row.
func SeedBid(tb testing.TB, ctx context.Context, tx *gorm.DB, caseID, attorneyID uuid.UUID, status string) *types.Bid {
	tb.Helper()
	now := time.Now().UTC()
	feeMin, feeMax := int64(500), int64(1500)
	b := &types.Bid{
		ID:                uuid.New(),
		CaseID:            caseID,
		AttorneyProfileID: attorneyID,
		Status:            status,
		Version:           1,
		FeeMode:           "FIXED",
		FeeMin:            &feeMin,
		FeeMax:            &feeMax,
		ContactedAt:       now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed bid: %v", err)
	}
	v := &types.BidVersion{BidID: b.ID, Version: 1, Status: status, Reason: "seed", CreatedAt: now}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed bid version: %v", err)
	}
	return b
}

func PtrInt64(v int64) *int64 { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
