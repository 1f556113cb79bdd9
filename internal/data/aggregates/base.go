package aggregates

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/casehall-backend/internal/domain/aggregates"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

var tracer = otel.Tracer("github.com/yungbote/casehall-backend/internal/data/aggregates")

type BaseDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
	Guard  VersionGuard
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Runner == nil {
		hooks := d.Hooks
		d.Runner = NewGormTxRunner(d.DB, WithSerializationRetry(3, 20*time.Millisecond, func() {
			hooks.IncRetry("aggregate.tx")
		}))
	}
	if d.Guard.db == nil {
		d.Guard = NewVersionGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

// executeWrite runs fn in one transaction, maps the failure to an aggregate
// error and reports the outcome to hooks and tracing.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	err := deps.Runner.InTx(ctx, fn)
	mapped := MapError(op, err)

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op, domainagg.ReasonOf(mapped))
		}
		if domainagg.IsCode(mapped, domainagg.CodeRetryable) {
			deps.Hooks.IncRetry(op)
		}
		if domainagg.IsCode(mapped, domainagg.CodeInternal) {
			deps.Log.Error("aggregate write failed", "op", op, "error", err)
			span.SetStatus(codes.Error, status)
		}
		span.SetAttributes(attribute.String("aggregate.reason", string(domainagg.ReasonOf(mapped))))
	}
	span.SetAttributes(attribute.String("aggregate.status", status))
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}

func normalizeAt(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at.UTC()
}
