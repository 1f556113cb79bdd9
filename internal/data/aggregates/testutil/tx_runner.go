package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/casehall-backend/internal/data/aggregates"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
)

// InjectedTxRunner fails a lifecycle transaction at a chosen phase. The body
// runs without a transaction handle, so repos fall back to their own db.
type InjectedTxRunner struct {
	mu sync.Mutex

	FailBegin      error
	FailBeforeBody error
	FailCommit     error

	BeginCalls    int
	BodyCalls     int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) bump(counter *int) {
	r.mu.Lock()
	*counter++
	r.mu.Unlock()
}

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin, failBeforeBody, failCommit := r.FailBegin, r.FailBeforeBody, r.FailCommit
	r.mu.Unlock()

	switch {
	case failBegin != nil:
		return failBegin
	case failBeforeBody != nil:
		r.bump(&r.RollbackCalls)
		return failBeforeBody
	}
	if fn != nil {
		r.bump(&r.BodyCalls)
		if err := fn(dbctx.Context{Ctx: ctx}); err != nil {
			r.bump(&r.RollbackCalls)
			return err
		}
	}
	if failCommit != nil {
		r.bump(&r.RollbackCalls)
		return failCommit
	}
	r.bump(&r.CommitCalls)
	return nil
}
