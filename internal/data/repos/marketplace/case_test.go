package marketplace

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	repotest "github.com/yungbote/casehall-backend/internal/data/repos/testutil"
	types "github.com/yungbote/casehall-backend/internal/domain"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
)

func TestCaseRepoListCandidatesFilters(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ctx := context.Background()
	repo := NewCaseRepo(tx, repotest.Logger(t))
	now := time.Now().UTC()

	family := repotest.SeedCase(t, ctx, tx, repotest.WithCategory("family"), repotest.WithState("CA"), repotest.WithZip("94110"), repotest.WithBudget(1000, 3000))
	repotest.SeedCase(t, ctx, tx, repotest.WithCategory("criminal"), repotest.WithState("NY"), repotest.WithZip("10001"))
	repotest.SeedCase(t, ctx, tx, repotest.WithCategory("family"), repotest.WithStatus(types.CaseStatusClosed))
	overdue := repotest.SeedCase(t, ctx, tx, repotest.WithCategory("estate"), repotest.WithDeadline(now.Add(-time.Hour)))

	open := []string{types.CaseStatusOpen, types.CaseStatusMatching}
	cases := []struct {
		name string
		f    CaseFilter
		want []uuid.UUID
	}{
		{name: "category", f: CaseFilter{Statuses: open, Category: "family"}, want: []uuid.UUID{family.ID}},
		{name: "zip prefix", f: CaseFilter{Statuses: open, ZipPrefix: "941"}, want: []uuid.UUID{family.ID}},
		{name: "budget overlap", f: CaseFilter{Statuses: open, Category: "family", BudgetMin: repotest.PtrInt64(2500)}, want: []uuid.UUID{family.ID}},
		{name: "budget miss", f: CaseFilter{Statuses: open, Category: "family", BudgetMin: repotest.PtrInt64(5000)}, want: nil},
		{name: "overdue", f: CaseFilter{Statuses: open, DeadlineBefore: &now}, want: []uuid.UUID{overdue.ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.ListCandidates(dbctx.Context{Ctx: ctx}, tc.f, 50)
			if err != nil {
				t.Fatalf("ListCandidates: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("count: want=%d got=%d", len(tc.want), len(got))
			}
			for i := range tc.want {
				if got[i].ID != tc.want[i] {
					t.Fatalf("row %d: want=%s got=%s", i, tc.want[i], got[i].ID)
				}
			}
		})
	}

	quoteable, err := repo.ListCandidates(dbctx.Context{Ctx: ctx}, CaseFilter{Statuses: open, QuoteableAt: &now}, 50)
	if err != nil {
		t.Fatalf("ListCandidates quoteable: %v", err)
	}
	for _, c := range quoteable {
		if c.ID == overdue.ID {
			t.Fatalf("quoteable filter must drop overdue case")
		}
	}
}

func TestCaseRepoListCandidatesMineBidOnly(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ctx := context.Background()
	repo := NewCaseRepo(tx, repotest.Logger(t))

	att := repotest.SeedAttorney(t, ctx, tx, []string{"family"}, []string{"CA"}, "94110")
	mine := repotest.SeedCase(t, ctx, tx)
	withdrawn := repotest.SeedCase(t, ctx, tx)
	repotest.SeedCase(t, ctx, tx)
	repotest.SeedBid(t, ctx, tx, mine.ID, att.ID, types.BidStatusPending)
	repotest.SeedBid(t, ctx, tx, withdrawn.ID, att.ID, types.BidStatusWithdrawn)

	got, err := repo.ListCandidates(dbctx.Context{Ctx: ctx}, CaseFilter{
		Statuses:        []string{types.CaseStatusOpen},
		BidByAttorneyID: &att.ID,
	}, 50)
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(got) != 1 || got[0].ID != mine.ID {
		t.Fatalf("mine-bid-only: want=[%s] got=%v", mine.ID, got)
	}
}

func TestCaseRepoFindSelectionDrift(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ctx := context.Background()
	repo := NewCaseRepo(tx, repotest.Logger(t))
	att := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")

	healthy := repotest.SeedCase(t, ctx, tx, repotest.WithStatus(types.CaseStatusMatching))
	hb := repotest.SeedBid(t, ctx, tx, healthy.ID, att.ID, types.BidStatusAccepted)
	if err := repo.UpdateFields(dbctx.Context{Ctx: ctx}, healthy.ID, map[string]interface{}{"selected_bid_id": hb.ID}); err != nil {
		t.Fatalf("select healthy: %v", err)
	}

	dangling := repotest.SeedCase(t, ctx, tx, repotest.WithStatus(types.CaseStatusMatching))
	db2 := repotest.SeedBid(t, ctx, tx, dangling.ID, att.ID, types.BidStatusWithdrawn)
	if err := repo.UpdateFields(dbctx.Context{Ctx: ctx}, dangling.ID, map[string]interface{}{"selected_bid_id": db2.ID}); err != nil {
		t.Fatalf("select dangling: %v", err)
	}

	orphan := repotest.SeedCase(t, ctx, tx)
	repotest.SeedBid(t, ctx, tx, orphan.ID, att.ID, types.BidStatusAccepted)

	drift, err := repo.FindSelectionDrift(dbctx.Context{Ctx: ctx}, 100)
	if err != nil {
		t.Fatalf("FindSelectionDrift: %v", err)
	}
	found := map[uuid.UUID]bool{}
	for _, d := range drift {
		found[d.CaseID] = true
	}
	if found[healthy.ID] {
		t.Fatalf("healthy case reported as drift")
	}
	if !found[dangling.ID] || !found[orphan.ID] {
		t.Fatalf("drift: want dangling and orphan, got=%+v", drift)
	}
}
