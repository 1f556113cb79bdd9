package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/yungbote/casehall-backend/internal/platform/ctxutil"
	"github.com/yungbote/casehall-backend/internal/platform/envutil"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

var driftAlerts struct {
	mu   sync.Mutex
	last time.Time
}

// ReportSelectionDrift publishes per-problem drift counts and, when
// SELECTION_DRIFT_ALERT_WEBHOOK_URL (or SLO_ALERT_WEBHOOK_URL) is set,
// posts a throttled alert for a non-empty result.
func ReportSelectionDrift(ctx context.Context, log *logger.Logger, m *Metrics, counts map[string]int, sample []string) {
	m.SetSelectionDrift(counts)
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return
	}
	webhook := envutil.String("SELECTION_DRIFT_ALERT_WEBHOOK_URL", envutil.String("SLO_ALERT_WEBHOOK_URL", ""))
	if webhook == "" {
		return
	}
	minInterval := envutil.Duration("SELECTION_DRIFT_ALERT_MIN_INTERVAL_SECONDS", 10*time.Minute)
	driftAlerts.mu.Lock()
	if !driftAlerts.last.IsZero() && time.Since(driftAlerts.last) < minInterval {
		driftAlerts.mu.Unlock()
		return
	}
	driftAlerts.last = time.Now()
	driftAlerts.mu.Unlock()

	meta := map[string]any{}
	fields := ctxutil.TraceFields(ctx)
	for i := 0; i+1 < len(fields); i += 2 {
		meta[fields[i].(string)] = fields[i+1]
	}
	postAlert(ctx, log, &http.Client{Timeout: 5 * time.Second}, webhook, map[string]any{
		"title":     "Case selection drift detected",
		"counts":    counts,
		"sample":    sample,
		"meta":      meta,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
