package aggregates_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/casehall-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/casehall-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/casehall-backend/internal/data/repos"
	repotest "github.com/yungbote/casehall-backend/internal/data/repos/testutil"
	types "github.com/yungbote/casehall-backend/internal/domain"
	domainagg "github.com/yungbote/casehall-backend/internal/domain/aggregates"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
)

type lifecycleFixture struct {
	db    *gorm.DB
	set   repos.Set
	agg   domainagg.BidLifecycleAggregate
	hooks *aggtest.HooksRecorder
}

func newLifecycle(t *testing.T, db *gorm.DB, runner aggregates.TxRunner, mutate ...func(*aggregates.BidLifecycleDeps)) lifecycleFixture {
	t.Helper()
	set := repos.NewSet(db, repotest.Logger(t))
	hooks := &aggtest.HooksRecorder{}
	if runner == nil {
		runner = aggregates.NewGormTxRunner(db)
	}
	deps := aggregates.BidLifecycleDeps{
		Base: aggregates.BaseDeps{
			DB:     db,
			Log:    repotest.Logger(t),
			Runner: runner,
			Hooks:  hooks,
			Guard:  aggregates.NewVersionGuard(db),
		},
		Cases:         set.Cases,
		Bids:          set.Bids,
		BidVersions:   set.BidVersions,
		Conversations: set.Conversations,
		Engagements:   set.Engagements,
		StatusLogs:    set.StatusLogs,
	}
	for _, m := range mutate {
		m(&deps)
	}
	return lifecycleFixture{db: db, set: set, agg: aggregates.NewBidLifecycleAggregate(deps), hooks: hooks}
}

func loadBid(t *testing.T, db *gorm.DB, id uuid.UUID) types.Bid {
	t.Helper()
	var b types.Bid
	if err := db.First(&b, "id = ?", id).Error; err != nil {
		t.Fatalf("load bid %s: %v", id, err)
	}
	return b
}

func loadCase(t *testing.T, db *gorm.DB, id uuid.UUID) types.Case {
	t.Helper()
	var c types.Case
	if err := db.First(&c, "id = ?", id).Error; err != nil {
		t.Fatalf("load case %s: %v", id, err)
	}
	return c
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func wantReason(t *testing.T, err error, code domainagg.ErrorCode, reason domainagg.Reason) {
	t.Helper()
	if !domainagg.IsCode(err, code) {
		t.Fatalf("code: want=%s got=%v", code, err)
	}
	if got := domainagg.ReasonOf(err); got != reason {
		t.Fatalf("reason: want=%s got=%s (%v)", reason, got, err)
	}
}

func TestBidLifecycleSelectHappyPath(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ctx := context.Background()
	f := newLifecycle(t, tx, nil)

	client := uuid.New()
	c := repotest.SeedCase(t, ctx, tx, repotest.WithClient(client))
	a1 := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	a2 := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	a3 := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	target := repotest.SeedBid(t, ctx, tx, c.ID, a1.ID, types.BidStatusPending)
	rival := repotest.SeedBid(t, ctx, tx, c.ID, a2.ID, types.BidStatusPending)
	gone := repotest.SeedBid(t, ctx, tx, c.ID, a3.ID, types.BidStatusWithdrawn)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res, err := f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: c.ID, BidID: target.ID, ClientUserID: client, At: at})
	if err != nil {
		t.Fatalf("SelectBid: %v", err)
	}
	if res.Reselected || res.CaseStatus != types.CaseStatusMatching || res.SelectedBidID != target.ID {
		t.Fatalf("result: %+v", res)
	}
	if len(res.RejectedBidIDs) != 1 || res.RejectedBidIDs[0] != rival.ID {
		t.Fatalf("rejected: want=[%s] got=%v", rival.ID, res.RejectedBidIDs)
	}
	if res.ConversationID == nil || res.EngagementID == uuid.Nil {
		t.Fatalf("conversation/engagement ids missing: %+v", res)
	}

	gotCase := loadCase(t, tx, c.ID)
	if gotCase.Status != types.CaseStatusMatching || gotCase.SelectedBidID == nil || *gotCase.SelectedBidID != target.ID {
		t.Fatalf("case after select: status=%s selected=%v", gotCase.Status, gotCase.SelectedBidID)
	}
	if b := loadBid(t, tx, target.ID); b.Status != types.BidStatusAccepted || b.Version != 2 {
		t.Fatalf("target: status=%s version=%d", b.Status, b.Version)
	}
	if b := loadBid(t, tx, rival.ID); b.Status != types.BidStatusRejected || b.Version != 2 {
		t.Fatalf("rival: status=%s version=%d", b.Status, b.Version)
	}
	if b := loadBid(t, tx, gone.ID); b.Status != types.BidStatusWithdrawn || b.Version != 1 {
		t.Fatalf("withdrawn bid must be untouched: status=%s version=%d", b.Status, b.Version)
	}

	var eng types.EngagementConfirmation
	if err := tx.First(&eng, "bid_id = ?", target.ID).Error; err != nil {
		t.Fatalf("load engagement: %v", err)
	}
	if eng.Status != types.EngagementPendingAttorney || eng.FeeMin == nil || *eng.FeeMin != 500 {
		t.Fatalf("engagement: %+v", eng)
	}
	if n := countRows(t, tx, &types.Conversation{}, "bid_id = ? AND status = ?", target.ID, types.ConversationStatusOpen); n != 1 {
		t.Fatalf("open conversations: want=1 got=%d", n)
	}
	if n := countRows(t, tx, &types.CaseStatusLog{}, "case_id = ? AND reason = ?", c.ID, "bid selected"); n != 1 {
		t.Fatalf("status logs: want=1 got=%d", n)
	}
	if got := f.hooks.StatusCounts("Marketplace.BidLifecycle.SelectBid"); got["success"] != 1 {
		t.Fatalf("hooks: %v", got)
	}
}

func TestBidLifecycleSelectSwitchMovesAcceptance(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ctx := context.Background()
	f := newLifecycle(t, tx, nil)

	client := uuid.New()
	c := repotest.SeedCase(t, ctx, tx, repotest.WithClient(client))
	a1 := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	a2 := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	first := repotest.SeedBid(t, ctx, tx, c.ID, a1.ID, types.BidStatusPending)
	second := repotest.SeedBid(t, ctx, tx, c.ID, a2.ID, types.BidStatusPending)

	if _, err := f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: c.ID, BidID: first.ID, ClientUserID: client}); err != nil {
		t.Fatalf("select first: %v", err)
	}
	res, err := f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: c.ID, BidID: second.ID, ClientUserID: client})
	if err != nil {
		t.Fatalf("select second: %v", err)
	}
	if res.Reselected {
		t.Fatalf("switching selection must not report reselect")
	}

	if n := countRows(t, tx, &types.Bid{}, "case_id = ? AND status = ?", c.ID, types.BidStatusAccepted); n != 1 {
		t.Fatalf("accepted bids: want=1 got=%d", n)
	}
	if b := loadBid(t, tx, first.ID); b.Status != types.BidStatusRejected || b.Version != 3 {
		t.Fatalf("first after switch: status=%s version=%d", b.Status, b.Version)
	}
	if b := loadBid(t, tx, second.ID); b.Status != types.BidStatusAccepted || b.Version != 3 {
		t.Fatalf("second after switch: status=%s version=%d", b.Status, b.Version)
	}
	var eng types.EngagementConfirmation
	if err := tx.First(&eng, "bid_id = ?", first.ID).Error; err != nil {
		t.Fatalf("load first engagement: %v", err)
	}
	if eng.Status != types.EngagementCancelled {
		t.Fatalf("displaced engagement: want=%s got=%s", types.EngagementCancelled, eng.Status)
	}
	if got := loadCase(t, tx, c.ID); got.SelectedBidID == nil || *got.SelectedBidID != second.ID {
		t.Fatalf("selected_bid_id: want=%s got=%v", second.ID, got.SelectedBidID)
	}
}

func TestBidLifecycleReselectIsIdempotent(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ctx := context.Background()
	f := newLifecycle(t, tx, nil)

	client := uuid.New()
	c := repotest.SeedCase(t, ctx, tx, repotest.WithClient(client))
	att := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	bid := repotest.SeedBid(t, ctx, tx, c.ID, att.ID, types.BidStatusPending)

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	in := domainagg.SelectBidInput{CaseID: c.ID, BidID: bid.ID, ClientUserID: client, At: at}
	first, err := f.agg.SelectBid(ctx, in)
	if err != nil {
		t.Fatalf("first select: %v", err)
	}
	in.At = at.Add(time.Hour)
	second, err := f.agg.SelectBid(ctx, in)
	if err != nil {
		t.Fatalf("second select: %v", err)
	}
	if !second.Reselected {
		t.Fatalf("second select: want Reselected")
	}
	if *second.ConversationID != *first.ConversationID || second.EngagementID != first.EngagementID {
		t.Fatalf("reselect must reuse conversation and engagement")
	}
	if !second.SelectedAt.Equal(first.SelectedAt) {
		t.Fatalf("selected_at: want=%v got=%v", first.SelectedAt, second.SelectedAt)
	}
	if b := loadBid(t, tx, bid.ID); b.Version != 2 {
		t.Fatalf("version after reselect: want=2 got=%d", b.Version)
	}
	if n := countRows(t, tx, &types.BidVersion{}, "bid_id = ?", bid.ID); n != 2 {
		t.Fatalf("bid history rows: want=2 got=%d", n)
	}
	if n := countRows(t, tx, &types.CaseStatusLog{}, "case_id = ? AND reason = ?", c.ID, "bid re-selected"); n != 1 {
		t.Fatalf("re-selected log rows: want=1 got=%d", n)
	}
}

func loadEngagement(t *testing.T, db *gorm.DB, bidID uuid.UUID) types.EngagementConfirmation {
	t.Helper()
	var e types.EngagementConfirmation
	if err := db.First(&e, "bid_id = ?", bidID).Error; err != nil {
		t.Fatalf("load engagement for bid %s: %v", bidID, err)
	}
	return e
}

func setEngagementStatus(t *testing.T, db *gorm.DB, bidID uuid.UUID, status string) {
	t.Helper()
	if err := db.Model(&types.EngagementConfirmation{}).Where("bid_id = ?", bidID).Update("status", status).Error; err != nil {
		t.Fatalf("set engagement status: %v", err)
	}
}

func TestBidLifecycleReselectResetsEngagement(t *testing.T) {
	for _, from := range []string{types.EngagementPendingClient, types.EngagementActive, types.EngagementCancelled} {
		t.Run(from, func(t *testing.T) {
			db := repotest.DB(t)
			tx := repotest.Tx(t, db)
			ctx := context.Background()
			f := newLifecycle(t, tx, nil)

			client := uuid.New()
			c := repotest.SeedCase(t, ctx, tx, repotest.WithClient(client))
			att := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
			bid := repotest.SeedBid(t, ctx, tx, c.ID, att.ID, types.BidStatusPending)
			in := domainagg.SelectBidInput{CaseID: c.ID, BidID: bid.ID, ClientUserID: client}

			first, err := f.agg.SelectBid(ctx, in)
			if err != nil {
				t.Fatalf("first select: %v", err)
			}
			setEngagementStatus(t, tx, bid.ID, from)

			second, err := f.agg.SelectBid(ctx, in)
			if err != nil {
				t.Fatalf("reselect: %v", err)
			}
			if second.EngagementID != first.EngagementID {
				t.Fatalf("engagement id: want=%s got=%s", first.EngagementID, second.EngagementID)
			}
			if e := loadEngagement(t, tx, bid.ID); e.Status != types.EngagementPendingAttorney {
				t.Fatalf("engagement after reselect from %s: want=%s got=%s", from, types.EngagementPendingAttorney, e.Status)
			}
			if n := countRows(t, tx, &types.EngagementConfirmation{}, "bid_id = ?", bid.ID); n != 1 {
				t.Fatalf("engagement rows: want=1 got=%d", n)
			}
			if n := countRows(t, tx, &types.Conversation{}, "bid_id = ?", bid.ID); n != 1 {
				t.Fatalf("conversation rows: want=1 got=%d", n)
			}
		})
	}
}

func TestBidLifecycleSwitchCancelsActiveEngagement(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ctx := context.Background()
	f := newLifecycle(t, tx, nil)

	client := uuid.New()
	c := repotest.SeedCase(t, ctx, tx, repotest.WithClient(client))
	a1 := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	a2 := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	b1 := repotest.SeedBid(t, ctx, tx, c.ID, a1.ID, types.BidStatusPending)
	b2 := repotest.SeedBid(t, ctx, tx, c.ID, a2.ID, types.BidStatusPending)

	if _, err := f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: c.ID, BidID: b1.ID, ClientUserID: client}); err != nil {
		t.Fatalf("select b1: %v", err)
	}
	setEngagementStatus(t, tx, b1.ID, types.EngagementActive)

	res, err := f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: c.ID, BidID: b2.ID, ClientUserID: client})
	if err != nil {
		t.Fatalf("select b2: %v", err)
	}
	if len(res.RejectedBidIDs) != 1 || res.RejectedBidIDs[0] != b1.ID {
		t.Fatalf("rejected: want=[%s] got=%v", b1.ID, res.RejectedBidIDs)
	}
	if b := loadBid(t, tx, b1.ID); b.Status != types.BidStatusRejected {
		t.Fatalf("b1 status: want=%s got=%s", types.BidStatusRejected, b.Status)
	}
	if e := loadEngagement(t, tx, b1.ID); e.Status != types.EngagementCancelled {
		t.Fatalf("b1 engagement: want=%s got=%s", types.EngagementCancelled, e.Status)
	}
	if e := loadEngagement(t, tx, b2.ID); e.Status != types.EngagementPendingAttorney {
		t.Fatalf("b2 engagement: want=%s got=%s", types.EngagementPendingAttorney, e.Status)
	}
	if n := countRows(t, tx, &types.EngagementConfirmation{}, "case_id = ? AND status = ?", c.ID, types.EngagementActive); n != 0 {
		t.Fatalf("active engagements after switch: want=0 got=%d", n)
	}
}

func TestBidLifecycleSelectReopensClosedConversation(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ctx := context.Background()
	f := newLifecycle(t, tx, nil)

	client := uuid.New()
	c := repotest.SeedCase(t, ctx, tx, repotest.WithClient(client))
	att := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	bid := repotest.SeedBid(t, ctx, tx, c.ID, att.ID, types.BidStatusPending)

	res, err := f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: c.ID, BidID: bid.ID, ClientUserID: client})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := tx.Model(&types.Conversation{}).Where("id = ?", *res.ConversationID).Update("status", types.ConversationStatusClosed).Error; err != nil {
		t.Fatalf("close conversation: %v", err)
	}
	again, err := f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: c.ID, BidID: bid.ID, ClientUserID: client})
	if err != nil {
		t.Fatalf("reselect: %v", err)
	}
	if *again.ConversationID != *res.ConversationID {
		t.Fatalf("conversation id changed on reopen")
	}
	if n := countRows(t, tx, &types.Conversation{}, "bid_id = ? AND status = ?", bid.ID, types.ConversationStatusOpen); n != 1 {
		t.Fatalf("reopened conversations: want=1 got=%d", n)
	}
}

func TestBidLifecycleSelectWithoutConversation(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ctx := context.Background()
	f := newLifecycle(t, tx, nil)

	client := uuid.New()
	c := repotest.SeedCase(t, ctx, tx, repotest.WithClient(client))
	att := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	bid := repotest.SeedBid(t, ctx, tx, c.ID, att.ID, types.BidStatusPending)

	no := false
	res, err := f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: c.ID, BidID: bid.ID, ClientUserID: client, CreateConversation: &no})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if res.ConversationID != nil {
		t.Fatalf("conversation: want=nil got=%v", *res.ConversationID)
	}
	if n := countRows(t, tx, &types.Conversation{}, "bid_id = ?", bid.ID); n != 0 {
		t.Fatalf("conversation rows: want=0 got=%d", n)
	}
	if n := countRows(t, tx, &types.EngagementConfirmation{}, "bid_id = ?", bid.ID); n != 1 {
		t.Fatalf("engagement rows: want=1 got=%d", n)
	}
}

func TestBidLifecycleSelectGuards(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ctx := context.Background()
	f := newLifecycle(t, tx, nil)

	client := uuid.New()
	c := repotest.SeedCase(t, ctx, tx, repotest.WithClient(client))
	other := repotest.SeedCase(t, ctx, tx, repotest.WithClient(client))
	closed := repotest.SeedCase(t, ctx, tx, repotest.WithClient(client), repotest.WithStatus(types.CaseStatusClosed))
	att := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	bid := repotest.SeedBid(t, ctx, tx, c.ID, att.ID, types.BidStatusPending)
	withdrawn := repotest.SeedBid(t, ctx, tx, other.ID, att.ID, types.BidStatusWithdrawn)
	closedBid := repotest.SeedBid(t, ctx, tx, closed.ID, att.ID, types.BidStatusPending)

	_, err := f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: c.ID, BidID: bid.ID, ClientUserID: uuid.New()})
	wantReason(t, err, domainagg.CodeNotFound, domainagg.ReasonCaseNotFound)

	_, err = f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: closed.ID, BidID: closedBid.ID, ClientUserID: client})
	wantReason(t, err, domainagg.CodeConflict, domainagg.ReasonCaseNotSelectable)

	_, err = f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: other.ID, BidID: withdrawn.ID, ClientUserID: client})
	wantReason(t, err, domainagg.CodeNotFound, domainagg.ReasonBidNotFound)

	_, err = f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: other.ID, BidID: bid.ID, ClientUserID: client})
	wantReason(t, err, domainagg.CodeNotFound, domainagg.ReasonBidNotFound)

	_, err = f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: c.ID, ClientUserID: client})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("missing bid id: want validation got=%v", err)
	}
	if b := loadBid(t, tx, bid.ID); b.Status != types.BidStatusPending || b.Version != 1 {
		t.Fatalf("rejected selects must not mutate: status=%s version=%d", b.Status, b.Version)
	}
	reasons := f.hooks.ConflictReasons("Marketplace.BidLifecycle.SelectBid")
	if reasons[domainagg.ReasonCaseNotSelectable] != 1 || len(reasons) != 1 {
		t.Fatalf("conflict reasons: want one CASE_NOT_SELECTABLE got=%v", reasons)
	}
}

func TestBidLifecycleSubmitCreatesAndRequotes(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ctx := context.Background()
	f := newLifecycle(t, tx, nil)

	client := uuid.New()
	c := repotest.SeedCase(t, ctx, tx, repotest.WithClient(client))
	att := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")

	created, err := f.agg.SubmitBid(ctx, domainagg.SubmitBidInput{
		CaseID:            c.ID,
		AttorneyProfileID: att.ID,
		Fee:               domainagg.FeeQuote{Mode: "fixed", Min: repotest.PtrInt64(800), Max: repotest.PtrInt64(1200)},
		Message:           "happy to help",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !created.Created || created.Version != 1 || created.Status != types.BidStatusPending {
		t.Fatalf("created: %+v", created)
	}

	requoted, err := f.agg.SubmitBid(ctx, domainagg.SubmitBidInput{
		CaseID:            c.ID,
		AttorneyProfileID: att.ID,
		Fee:               domainagg.FeeQuote{Mode: types.FeeModeHourly, Min: repotest.PtrInt64(200), Max: repotest.PtrInt64(300)},
	})
	if err != nil {
		t.Fatalf("requote: %v", err)
	}
	if requoted.Created || requoted.BidID != created.BidID || requoted.Version != 2 {
		t.Fatalf("requoted: %+v", requoted)
	}
	b := loadBid(t, tx, created.BidID)
	if b.FeeMode != types.FeeModeHourly || b.FeeMin == nil || *b.FeeMin != 200 {
		t.Fatalf("requoted fee: mode=%s min=%v", b.FeeMode, b.FeeMin)
	}
	if n := countRows(t, tx, &types.Bid{}, "case_id = ? AND attorney_profile_id = ?", c.ID, att.ID); n != 1 {
		t.Fatalf("bids per attorney: want=1 got=%d", n)
	}

	_, err = f.agg.SubmitBid(ctx, domainagg.SubmitBidInput{
		CaseID:            c.ID,
		AttorneyProfileID: att.ID,
		Fee:               domainagg.FeeQuote{Min: repotest.PtrInt64(10), Max: repotest.PtrInt64(5)},
	})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("inverted fee range: want validation got=%v", err)
	}
}

func TestBidLifecycleSubmitGuards(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ctx := context.Background()
	f := newLifecycle(t, tx, nil)

	client := uuid.New()
	c := repotest.SeedCase(t, ctx, tx, repotest.WithClient(client))
	cancelled := repotest.SeedCase(t, ctx, tx, repotest.WithStatus(types.CaseStatusCancelled))
	att := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	bid := repotest.SeedBid(t, ctx, tx, c.ID, att.ID, types.BidStatusPending)

	_, err := f.agg.SubmitBid(ctx, domainagg.SubmitBidInput{CaseID: cancelled.ID, AttorneyProfileID: att.ID})
	wantReason(t, err, domainagg.CodeConflict, domainagg.ReasonCaseNotBiddable)

	_, err = f.agg.SubmitBid(ctx, domainagg.SubmitBidInput{CaseID: uuid.New(), AttorneyProfileID: att.ID})
	wantReason(t, err, domainagg.CodeNotFound, domainagg.ReasonCaseNotFound)

	if _, err := f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: c.ID, BidID: bid.ID, ClientUserID: client}); err != nil {
		t.Fatalf("select: %v", err)
	}
	_, err = f.agg.SubmitBid(ctx, domainagg.SubmitBidInput{CaseID: c.ID, AttorneyProfileID: att.ID})
	wantReason(t, err, domainagg.CodeConflict, domainagg.ReasonBidAccepted)
}

func TestBidLifecycleWithdrawGuards(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ctx := context.Background()
	f := newLifecycle(t, tx, nil)

	client := uuid.New()
	c := repotest.SeedCase(t, ctx, tx, repotest.WithClient(client))
	a1 := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	a2 := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	a3 := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	mine := repotest.SeedBid(t, ctx, tx, c.ID, a1.ID, types.BidStatusPending)
	chosen := repotest.SeedBid(t, ctx, tx, c.ID, a2.ID, types.BidStatusPending)
	drifted := repotest.SeedBid(t, ctx, tx, c.ID, a3.ID, types.BidStatusPending)

	_, err := f.agg.WithdrawBid(ctx, domainagg.WithdrawBidInput{BidID: mine.ID, AttorneyProfileID: a2.ID})
	wantReason(t, err, domainagg.CodeNotFound, domainagg.ReasonBidNotFound)

	res, err := f.agg.WithdrawBid(ctx, domainagg.WithdrawBidInput{BidID: mine.ID, AttorneyProfileID: a1.ID, ActorUserID: a1.UserID})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if res.Status != types.BidStatusWithdrawn || res.Version != 2 {
		t.Fatalf("withdraw result: %+v", res)
	}
	var logRow types.CaseStatusLog
	if err := tx.First(&logRow, "case_id = ? AND reason = ?", c.ID, "bid withdrawn").Error; err != nil {
		t.Fatalf("load withdraw log: %v", err)
	}
	if logRow.FromStatus != logRow.ToStatus {
		t.Fatalf("withdraw log must not change case status: %s -> %s", logRow.FromStatus, logRow.ToStatus)
	}

	_, err = f.agg.WithdrawBid(ctx, domainagg.WithdrawBidInput{BidID: mine.ID, AttorneyProfileID: a1.ID})
	wantReason(t, err, domainagg.CodeConflict, domainagg.ReasonAlreadyWithdrawn)

	if _, err := f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: c.ID, BidID: chosen.ID, ClientUserID: client}); err != nil {
		t.Fatalf("select: %v", err)
	}
	_, err = f.agg.WithdrawBid(ctx, domainagg.WithdrawBidInput{BidID: chosen.ID, AttorneyProfileID: a2.ID})
	wantReason(t, err, domainagg.CodeConflict, domainagg.ReasonBidAccepted)

	// A selection pointer left on a non-accepted bid still blocks withdrawal.
	if err := tx.Model(&types.Case{}).Where("id = ?", c.ID).Update("selected_bid_id", drifted.ID).Error; err != nil {
		t.Fatalf("force drift: %v", err)
	}
	_, err = f.agg.WithdrawBid(ctx, domainagg.WithdrawBidInput{BidID: drifted.ID, AttorneyProfileID: a3.ID})
	wantReason(t, err, domainagg.CodeConflict, domainagg.ReasonBidSelected)
}

func TestBidLifecycleVersionsAreContiguous(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ctx := context.Background()
	f := newLifecycle(t, tx, nil)

	client := uuid.New()
	c := repotest.SeedCase(t, ctx, tx, repotest.WithClient(client))
	a1 := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	a2 := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	rival := repotest.SeedBid(t, ctx, tx, c.ID, a2.ID, types.BidStatusPending)

	sub, err := f.agg.SubmitBid(ctx, domainagg.SubmitBidInput{CaseID: c.ID, AttorneyProfileID: a1.ID})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: c.ID, BidID: rival.ID, ClientUserID: client}); err != nil {
		t.Fatalf("select rival: %v", err)
	}
	if _, err := f.agg.SubmitBid(ctx, domainagg.SubmitBidInput{CaseID: c.ID, AttorneyProfileID: a1.ID}); err != nil {
		t.Fatalf("resubmit after rejection: %v", err)
	}
	if _, err := f.agg.WithdrawBid(ctx, domainagg.WithdrawBidInput{BidID: sub.BidID, AttorneyProfileID: a1.ID}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	history, err := f.set.BidVersions.ListByBid(dbctx.Context{Ctx: ctx, Tx: tx}, sub.BidID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	wantStatuses := []string{types.BidStatusPending, types.BidStatusRejected, types.BidStatusPending, types.BidStatusWithdrawn}
	if len(history) != len(wantStatuses) {
		t.Fatalf("history length: want=%d got=%d", len(wantStatuses), len(history))
	}
	for i, row := range history {
		if row.Version != i+1 || row.Status != wantStatuses[i] {
			t.Fatalf("history[%d]: want v%d %s got v%d %s", i, i+1, wantStatuses[i], row.Version, row.Status)
		}
	}
	if b := loadBid(t, tx, sub.BidID); b.Version != len(wantStatuses) {
		t.Fatalf("bid version: want=%d got=%d", len(wantStatuses), b.Version)
	}
}

type failingStatusLogs struct {
	repos.CaseStatusLogRepo
	err error
}

func (f failingStatusLogs) Create(_ dbctx.Context, _ []*types.CaseStatusLog) ([]*types.CaseStatusLog, error) {
	return nil, f.err
}

func TestBidLifecycleSelectRollsBackOnLateFailure(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ctx := context.Background()
	boom := errors.New("status log unavailable")
	f := newLifecycle(t, tx, nil, func(d *aggregates.BidLifecycleDeps) {
		d.StatusLogs = failingStatusLogs{CaseStatusLogRepo: d.StatusLogs, err: boom}
	})

	client := uuid.New()
	c := repotest.SeedCase(t, ctx, tx, repotest.WithClient(client))
	a1 := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	a2 := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	target := repotest.SeedBid(t, ctx, tx, c.ID, a1.ID, types.BidStatusPending)
	rival := repotest.SeedBid(t, ctx, tx, c.ID, a2.ID, types.BidStatusPending)

	_, err := f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: c.ID, BidID: target.ID, ClientUserID: client})
	if !domainagg.IsCode(err, domainagg.CodeInternal) || !errors.Is(err, boom) {
		t.Fatalf("want internal wrapping cause, got=%v", err)
	}

	if got := loadCase(t, tx, c.ID); got.Status != types.CaseStatusOpen || got.SelectedBidID != nil {
		t.Fatalf("case must be untouched: status=%s selected=%v", got.Status, got.SelectedBidID)
	}
	for _, id := range []uuid.UUID{target.ID, rival.ID} {
		if b := loadBid(t, tx, id); b.Status != types.BidStatusPending || b.Version != 1 {
			t.Fatalf("bid %s must be untouched: status=%s version=%d", id, b.Status, b.Version)
		}
	}
	if n := countRows(t, tx, &types.EngagementConfirmation{}, "case_id = ?", c.ID); n != 0 {
		t.Fatalf("engagement rows: want=0 got=%d", n)
	}
	if n := countRows(t, tx, &types.BidVersion{}, "bid_id IN ?", []uuid.UUID{target.ID, rival.ID}); n != 2 {
		t.Fatalf("history rows: want=2 got=%d", n)
	}
}

func TestBidLifecycleInjectedRunnerFailures(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ctx := context.Background()

	client := uuid.New()
	c := repotest.SeedCase(t, ctx, tx, repotest.WithClient(client))
	att := repotest.SeedAttorney(t, ctx, tx, nil, nil, "")
	bid := repotest.SeedBid(t, ctx, tx, c.ID, att.ID, types.BidStatusPending)

	runner := &aggtest.InjectedTxRunner{FailBegin: aggregates.RetryableError("pool exhausted")}
	f := newLifecycle(t, tx, runner)
	_, err := f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: c.ID, BidID: bid.ID, ClientUserID: client})
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("begin failure: want retryable got=%v", err)
	}
	if len(f.hooks.Retries) != 1 || runner.CommitCalls != 0 {
		t.Fatalf("retries=%v commits=%d", f.hooks.Retries, runner.CommitCalls)
	}

	runner = &aggtest.InjectedTxRunner{FailCommit: errors.New("commit lost")}
	f = newLifecycle(t, tx, runner)
	_, err = f.agg.SubmitBid(ctx, domainagg.SubmitBidInput{CaseID: c.ID, AttorneyProfileID: att.ID})
	if !domainagg.IsCode(err, domainagg.CodeInternal) {
		t.Fatalf("commit failure: want internal got=%v", err)
	}
	if runner.RollbackCalls != 1 {
		t.Fatalf("rollback calls: want=1 got=%d", runner.RollbackCalls)
	}
}

func TestBidLifecycleConcurrentSelectsLeaveOneAccepted(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	f := newLifecycle(t, db, nil)

	client := uuid.New()
	c := repotest.SeedCase(t, ctx, db, repotest.WithClient(client))
	const n = 6
	bidIDs := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		att := repotest.SeedAttorney(t, ctx, db, nil, nil, "")
		bidIDs = append(bidIDs, repotest.SeedBid(t, ctx, db, c.ID, att.ID, types.BidStatusPending).ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range bidIDs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.agg.SelectBid(ctx, domainagg.SelectBidInput{CaseID: c.ID, BidID: bidIDs[i], ClientUserID: client})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err == nil {
			continue
		}
		if !domainagg.IsCode(err, domainagg.CodeConflict) && !domainagg.IsCode(err, domainagg.CodeRetryable) {
			t.Fatalf("select %d: unexpected error %v", i, err)
		}
	}

	var accepted []types.Bid
	if err := db.Where("case_id = ? AND status = ?", c.ID, types.BidStatusAccepted).Find(&accepted).Error; err != nil {
		t.Fatalf("load accepted: %v", err)
	}
	if len(accepted) != 1 {
		t.Fatalf("accepted bids: want=1 got=%d", len(accepted))
	}
	got := loadCase(t, db, c.ID)
	if got.SelectedBidID == nil || *got.SelectedBidID != accepted[0].ID {
		t.Fatalf("selected_bid_id=%v accepted=%s", got.SelectedBidID, accepted[0].ID)
	}
	if rest := countRows(t, db, &types.Bid{}, "case_id = ? AND status = ?", c.ID, types.BidStatusRejected); rest != n-1 {
		t.Fatalf("rejected bids: want=%d got=%d", n-1, rest)
	}
}
