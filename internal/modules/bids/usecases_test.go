package bids

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/casehall-backend/internal/domain/aggregates"
	"github.com/yungbote/casehall-backend/internal/platform/apierr"
	"github.com/yungbote/casehall-backend/internal/platform/ctxutil"
)

type fakeLifecycle struct {
	submitIn   domainagg.SubmitBidInput
	withdrawIn domainagg.WithdrawBidInput
	selectIn   domainagg.SelectBidInput
	err        error
	calls      int
}

func (f *fakeLifecycle) Contract() domainagg.Contract { return domainagg.BidLifecycleContract }

func (f *fakeLifecycle) SubmitBid(_ context.Context, in domainagg.SubmitBidInput) (domainagg.SubmitBidResult, error) {
	f.calls++
	f.submitIn = in
	return domainagg.SubmitBidResult{BidID: uuid.New(), CaseID: in.CaseID, Version: 1, Created: true}, f.err
}

func (f *fakeLifecycle) WithdrawBid(_ context.Context, in domainagg.WithdrawBidInput) (domainagg.WithdrawBidResult, error) {
	f.calls++
	f.withdrawIn = in
	return domainagg.WithdrawBidResult{BidID: in.BidID, CaseID: uuid.New(), Version: 2}, f.err
}

func (f *fakeLifecycle) SelectBid(_ context.Context, in domainagg.SelectBidInput) (domainagg.SelectBidResult, error) {
	f.calls++
	f.selectIn = in
	return domainagg.SelectBidResult{CaseID: in.CaseID, SelectedBidID: in.BidID}, f.err
}

type fakeNotifier struct {
	selected  int
	withdrawn int
}

func (n *fakeNotifier) BidSelected(context.Context, domainagg.SelectBidResult) { n.selected++ }
func (n *fakeNotifier) BidWithdrawn(context.Context, domainagg.WithdrawBidResult, uuid.UUID) {
	n.withdrawn++
}

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func setup() (*fakeLifecycle, *fakeNotifier, Usecases) {
	lc := &fakeLifecycle{}
	n := &fakeNotifier{}
	return lc, n, New(UsecasesDeps{Lifecycle: lc, Notifier: n, Now: func() time.Time { return fixedNow }})
}

func asClient(userID uuid.UUID) context.Context {
	return ctxutil.WithIdentity(context.Background(), &ctxutil.Identity{UserID: userID, Role: ctxutil.RoleClient})
}

func asAttorney(userID, profileID uuid.UUID) context.Context {
	return ctxutil.WithIdentity(context.Background(), &ctxutil.Identity{UserID: userID, Role: ctxutil.RoleAttorney, AttorneyProfileID: profileID})
}

func wantStatus(t *testing.T, err error, status int, code string) {
	t.Helper()
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("error type: want=*apierr.Error got=%T (%v)", err, err)
	}
	if ae.Status != status || ae.Code != code {
		t.Fatalf("api error: want=%d/%s got=%d/%s", status, code, ae.Status, ae.Code)
	}
}

func TestSelectBidRequiresClientAndNotifies(t *testing.T) {
	lc, n, uc := setup()
	caseID, bidID, user := uuid.New(), uuid.New(), uuid.New()

	_, err := uc.SelectBid(asAttorney(user, uuid.New()), SelectInput{CaseID: caseID, BidID: bidID})
	wantStatus(t, err, http.StatusForbidden, "CLIENT_REQUIRED")
	_, err = uc.SelectBid(context.Background(), SelectInput{CaseID: caseID, BidID: bidID})
	wantStatus(t, err, http.StatusForbidden, "CLIENT_REQUIRED")
	_, err = uc.SelectBid(asClient(user), SelectInput{CaseID: caseID})
	wantStatus(t, err, http.StatusBadRequest, "MISSING_BID_ID")
	if lc.calls != 0 {
		t.Fatalf("aggregate calls before validation: want=0 got=%d", lc.calls)
	}

	if _, err := uc.SelectBid(asClient(user), SelectInput{CaseID: caseID, BidID: bidID}); err != nil {
		t.Fatalf("SelectBid: %v", err)
	}
	if lc.selectIn.ClientUserID != user || !lc.selectIn.At.Equal(fixedNow) {
		t.Fatalf("aggregate input: got=%+v", lc.selectIn)
	}
	if n.selected != 1 {
		t.Fatalf("notifications: want=1 got=%d", n.selected)
	}
}

func TestSubmitBidPassesAttorneyScope(t *testing.T) {
	lc, _, uc := setup()
	profile := uuid.New()
	_, err := uc.SubmitBid(asClient(uuid.New()), SubmitInput{CaseID: uuid.New()})
	wantStatus(t, err, http.StatusForbidden, "ATTORNEY_REQUIRED")

	if _, err := uc.SubmitBid(asAttorney(uuid.New(), profile), SubmitInput{CaseID: uuid.New(), FeeMode: " hourly ", Message: " hi "}); err != nil {
		t.Fatalf("SubmitBid: %v", err)
	}
	if lc.submitIn.AttorneyProfileID != profile || lc.submitIn.Fee.Mode != "HOURLY" || lc.submitIn.Message != "hi" {
		t.Fatalf("aggregate input: got=%+v", lc.submitIn)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"already withdrawn", domainagg.Conflict("op", domainagg.ReasonAlreadyWithdrawn, "bid already withdrawn"), http.StatusConflict, "ALREADY_WITHDRAWN"},
		{"selected", domainagg.Conflict("op", domainagg.ReasonBidSelected, "bid is selected"), http.StatusConflict, "BID_SELECTED"},
		{"not found", domainagg.NewReasonError(domainagg.CodeNotFound, domainagg.ReasonBidNotFound, "op", "bid x of attorney y"), http.StatusNotFound, "BID_NOT_FOUND"},
		{"validation", domainagg.NewError(domainagg.CodeValidation, "op", "fee min > max", nil), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"retryable", domainagg.NewError(domainagg.CodeRetryable, "op", "deadlock", nil), http.StatusServiceUnavailable, "RETRY"},
		{"internal", domainagg.NewError(domainagg.CodeInternal, "op", "pq: relation bid does not exist", nil), http.StatusInternalServerError, "INTERNAL"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lc, n, uc := setup()
			lc.err = tc.err
			_, err := uc.WithdrawBid(asAttorney(uuid.New(), uuid.New()), uuid.New())
			wantStatus(t, err, tc.status, tc.code)
			if n.withdrawn != 0 {
				t.Fatalf("failed withdraw must not notify")
			}
			if tc.status >= 500 && err.Error() != "internal error" && tc.status != http.StatusServiceUnavailable {
				t.Fatalf("internal message leaked: %q", err.Error())
			}
		})
	}
}
