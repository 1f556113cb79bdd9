package aggregates

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/casehall-backend/internal/domain/aggregates"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
)

// TxRunner is the transaction boundary used by every aggregate write.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type TxOption func(*gormTxRunner)

// WithSerializationRetry re-runs the whole transaction when Postgres aborts
// it with a serialization failure or deadlock. Competing Selects on one case
// lock the case row and its bids in different orders under load.
func WithSerializationRetry(attempts int, backoff time.Duration, onRetry func()) TxOption {
	return func(r *gormTxRunner) {
		if attempts > 1 {
			r.attempts = attempts
		}
		r.backoff = backoff
		r.onRetry = onRetry
	}
}

type gormTxRunner struct {
	db       *gorm.DB
	attempts int
	backoff  time.Duration
	onRetry  func()
}

func NewGormTxRunner(db *gorm.DB, opts ...TxOption) TxRunner {
	r := &gormTxRunner{db: db, attempts: 1}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(dbctx.Context{Ctx: ctx, Tx: tx})
		})
		if err == nil || attempt == r.attempts || !isSerializationFailure(err) {
			return err
		}
		if r.onRetry != nil {
			r.onRetry()
		}
		if r.backoff > 0 {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(time.Duration(attempt) * r.backoff):
			}
		}
	}
	return err
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
