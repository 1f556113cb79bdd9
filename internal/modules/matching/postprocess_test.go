package matching

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/casehall-backend/internal/domain"
)

func item(n int, category string, score float64) *ScoredCase {
	return &ScoredCase{
		Case: &types.Case{
			ID:        uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n)),
			Category:  category,
			CreatedAt: testNow.Add(-time.Duration(n) * time.Minute),
		},
		Score: score,
	}
}

func ids(items []*ScoredCase) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Case.ID.String()[24:])
	}
	return out
}

func TestExposureCapDefersOverflowInOrder(t *testing.T) {
	items := []*ScoredCase{
		item(1, "family", 9), item(2, "family", 8), item(3, "family", 7),
		item(4, "family", 6), item(5, "tax", 5), item(6, "family", 4), item(7, "tax", 3),
	}
	got := ApplyExposureCap(items, 4, 2)

	want := []string{"000000000001", "000000000002", "000000000005", "000000000007", "000000000003", "000000000004", "000000000006"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("order: want=%v got=%v", want, ids(got))
	}
	counts := map[string]int{}
	for _, it := range got[:4] {
		counts[it.Case.Category]++
	}
	for cat, n := range counts {
		if n > 2 {
			t.Fatalf("category %s in window: want<=2 got=%d", cat, n)
		}
	}
	for _, it := range got[4:] {
		if !HasAllReasons(it.Reasons, []string{ReasonExposureCapped}) {
			t.Fatalf("deferred item %s missing cap reason: %v", it.Case.ID, it.Reasons)
		}
	}
	for _, it := range got[:4] {
		if HasAllReasons(it.Reasons, []string{ReasonExposureCapped}) {
			t.Fatalf("window item %s tagged: %v", it.Case.ID, it.Reasons)
		}
	}
}

func TestExposureCapDisabled(t *testing.T) {
	items := []*ScoredCase{item(1, "family", 3), item(2, "family", 2), item(3, "family", 1)}
	for _, tc := range []struct{ window, cap int }{{0, 1}, {3, 0}} {
		got := ApplyExposureCap(items, tc.window, tc.cap)
		if !reflect.DeepEqual(ids(got), ids(items)) {
			t.Fatalf("window=%d cap=%d: want=%v got=%v", tc.window, tc.cap, ids(items), ids(got))
		}
	}
}

func TestDemoteHighRiskIsStable(t *testing.T) {
	items := []*ScoredCase{item(1, "a", 50), item(2, "a", 40), item(3, "a", 30), item(4, "a", 20)}
	items[0].risky = true
	items[2].risky = true

	got, split := DemoteHighRisk(items, 50)
	want := []string{"000000000002", "000000000004", "000000000001", "000000000003"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("order: want=%v got=%v", want, ids(got))
	}
	if split != 2 {
		t.Fatalf("split: want=2 got=%d", split)
	}
	if got[2].Score != 0 {
		t.Fatalf("penalty: want=0 got=%v", got[2].Score)
	}

	same, split := DemoteHighRisk([]*ScoredCase{item(1, "a", 1)}, 0)
	if split != 1 || len(same) != 1 {
		t.Fatalf("disabled demotion: want split=1 got=%d", split)
	}
}

func TestRiskHints(t *testing.T) {
	cfg := DefaultRankingConfig()
	hints, high := RiskHints(types.RiskCounts{RuleHits: 1, Reports: 2}, cfg)
	want := []string{"rule_hits:1", "reports:2", HintHighRisk}
	if !reflect.DeepEqual(hints, want) || !high {
		t.Fatalf("hints: want=%v high=true got=%v high=%v", want, hints, high)
	}

	cfg.RiskReportThreshold = 0
	hints, high = RiskHints(types.RiskCounts{Reports: 9}, cfg)
	if high || !reflect.DeepEqual(hints, []string{"reports:9"}) {
		t.Fatalf("disabled trigger: got=%v high=%v", hints, high)
	}

	hints, high = RiskHints(types.RiskCounts{}, DefaultRankingConfig())
	if hints != nil || high {
		t.Fatalf("clean case: got=%v high=%v", hints, high)
	}
}

func TestSortItemsModes(t *testing.T) {
	d1 := testNow.Add(time.Hour)
	d2 := testNow.Add(2 * time.Hour)
	a := item(1, "x", 10)
	a.BidCount = 1
	a.Case.QuoteDeadline = &d2
	b := item(2, "x", 30)
	b.BidCount = 5
	b.Case.BudgetMax = ptrInt64(100)
	c := item(3, "x", 20)
	c.BidCount = 1
	c.Case.QuoteDeadline = &d1
	c.Case.BudgetMax = ptrInt64(500)

	cases := []struct {
		mode string
		want []string
	}{
		{SortLatest, []string{"000000000001", "000000000002", "000000000003"}},
		{SortRecommended, []string{"000000000002", "000000000003", "000000000001"}},
		{SortQuotesDesc, []string{"000000000002", "000000000001", "000000000003"}},
		{SortLowCompetition, []string{"000000000001", "000000000003", "000000000002"}},
		{SortDeadlineAsc, []string{"000000000003", "000000000001", "000000000002"}},
		{SortBudgetDesc, []string{"000000000003", "000000000002", "000000000001"}},
	}
	for _, tc := range cases {
		t.Run(tc.mode, func(t *testing.T) {
			items := []*ScoredCase{c, a, b}
			SortItems(items, tc.mode)
			if !reflect.DeepEqual(ids(items), tc.want) {
				t.Fatalf("order: want=%v got=%v", tc.want, ids(items))
			}
		})
	}
}

func TestSortTieBreaksByIDWhenCreatedEqual(t *testing.T) {
	x := item(2, "x", 5)
	y := item(1, "x", 5)
	y.Case.CreatedAt = x.Case.CreatedAt
	items := []*ScoredCase{x, y}
	SortItems(items, SortRecommended)
	if items[0] != y {
		t.Fatalf("tie-break: want=%s got=%s", y.Case.ID, items[0].Case.ID)
	}
}

func ptrInt64(v int64) *int64 { return &v }
