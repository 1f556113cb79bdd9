package aggregates

import (
	"strings"
	"time"

	domainagg "github.com/yungbote/casehall-backend/internal/domain/aggregates"
	"github.com/yungbote/casehall-backend/internal/observability"
)

// Hooks receives bid lifecycle outcome signals.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	// IncConflict counts a rejected write by reason (BID_SELECTED, STALE_STATE, ...).
	IncConflict(name string, reason domainagg.Reason)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string, domainagg.Reason)           {}
func (noopHooks) IncRetry(string)                                {}

type metricsHooks struct {
	metrics *observability.Metrics
}

// NewObservabilityHooks reports to the metrics registry; nil metrics yields no-op hooks.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return metricsHooks{metrics: metrics}
}

func (h metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.metrics.ObserveAggregateOperation(strings.TrimSpace(name), strings.TrimSpace(status), dur)
}

func (h metricsHooks) IncConflict(name string, reason domainagg.Reason) {
	h.metrics.IncAggregateConflict(strings.TrimSpace(name), string(reason))
}

func (h metricsHooks) IncRetry(name string) {
	h.metrics.IncAggregateRetry(strings.TrimSpace(name))
}
