package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/yungbote/casehall-backend/internal/platform/envutil"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

type rollingSum struct {
	values []float64
	idx    int
	total  float64
}

func newRollingSum(size int) *rollingSum {
	if size < 1 {
		size = 1
	}
	return &rollingSum{values: make([]float64, size)}
}

func (r *rollingSum) add(v float64) {
	r.total += v - r.values[r.idx]
	r.values[r.idx] = v
	r.idx = (r.idx + 1) % len(r.values)
}

// sloInput is a monotonic (total, bad) pair sampled every tick.
type sloInput struct {
	name   string
	target float64
	sample func() (total, bad float64)

	prevTotal, prevBad float64
	total, bad         *rollingSum
}

type SLOEvaluator struct {
	metrics     *Metrics
	log         *logger.Logger
	interval    time.Duration
	windowLabel string
	inputs      []*sloInput

	alertWebhook     string
	alertOwner       string
	alertMinInterval time.Duration
	alertBurnWarn    float64
	alertBurnCrit    float64
	httpClient       *http.Client

	alertMu    sync.Mutex
	lastAlerts map[string]time.Time
}

// StartSLOEvaluator tracks API availability, API latency and bid selection
// success over a rolling window when SLO_ENABLED is set.
func (m *Metrics) StartSLOEvaluator(ctx context.Context, log *logger.Logger) {
	if m == nil || !envutil.Bool("SLO_ENABLED", false) {
		return
	}
	eval := newSLOEvaluator(m, log)
	go eval.run(ctx)
	if log != nil {
		log.Info("SLO evaluator started", "window", eval.windowLabel, "interval", eval.interval.String())
	}
}

const selectBidOp = "Marketplace.BidLifecycle.SelectBid"

func newSLOEvaluator(m *Metrics, log *logger.Logger) *SLOEvaluator {
	interval := envutil.Duration("SLO_EVAL_INTERVAL_SECONDS", time.Minute)
	if interval <= 0 {
		interval = time.Minute
	}
	windowHours := envutil.Float("SLO_WINDOW_HOURS", 720)
	if windowHours < 1 {
		windowHours = 24
	}
	window := time.Duration(windowHours * float64(time.Hour))
	size := int(window / interval)

	e := &SLOEvaluator{
		metrics:          m,
		log:              log,
		interval:         interval,
		windowLabel:      formatWindowLabel(window),
		alertWebhook:     envutil.String("SLO_ALERT_WEBHOOK_URL", ""),
		alertOwner:       envutil.String("SLO_ALERT_OWNER", ""),
		alertMinInterval: envutil.Duration("SLO_ALERT_MIN_INTERVAL_SECONDS", 15*time.Minute),
		alertBurnWarn:    envutil.Float("SLO_ALERT_BURN_RATE_WARN", 2),
		alertBurnCrit:    envutil.Float("SLO_ALERT_BURN_RATE_CRIT", 10),
		httpClient:       &http.Client{Timeout: 5 * time.Second},
		lastAlerts:       map[string]time.Time{},
	}
	add := func(name string, target float64, sample func() (float64, float64)) {
		e.inputs = append(e.inputs, &sloInput{
			name:   name,
			target: clamp01(target),
			sample: sample,
			total:  newRollingSum(size),
			bad:    newRollingSum(size),
		})
	}
	add("api_availability", envutil.Float("SLO_API_AVAIL_TARGET", 0.995), func() (float64, float64) {
		return m.apiReqTotal.Value(), m.apiReqError.Value()
	})
	add("api_latency", envutil.Float("SLO_API_LATENCY_TARGET", 0.95), func() (float64, float64) {
		total := m.apiReqTotal.Value()
		return total, total - m.apiReqGood.Value()
	})
	add("bid_select_success", envutil.Float("SLO_SELECT_SUCCESS_TARGET", 0.99), func() (float64, float64) {
		ok := m.aggregateOps.Value(selectBidOp, "success")
		internal := m.aggregateOps.Value(selectBidOp, "internal")
		retry := m.aggregateOps.Value(selectBidOp, "retryable")
		return ok + internal + retry, internal + retry
	})
	return e
}

func (e *SLOEvaluator) run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.evaluate(ctx)
		}
	}
}

func (e *SLOEvaluator) evaluate(ctx context.Context) {
	for _, in := range e.inputs {
		total, bad := in.sample()
		in.total.add(delta(total, in.prevTotal))
		in.bad.add(delta(bad, in.prevBad))
		in.prevTotal, in.prevBad = total, bad
		e.evalSLO(ctx, in.name, in.total.total, in.bad.total, in.target)
	}
}

func (e *SLOEvaluator) evalSLO(ctx context.Context, name string, total, bad, target float64) {
	m := e.metrics
	if total <= 0 {
		m.sloCompliance.Set(1, name, e.windowLabel)
		m.sloBudget.Set(1, name, e.windowLabel)
		m.sloBurn.Set(0, name, e.windowLabel)
		return
	}
	sli := clamp01(1 - bad/total)
	burn := 0.0
	if target < 1 {
		burn = (1 - sli) / (1 - target)
	}
	budget := clamp01(1 - burn)
	m.sloCompliance.Set(sli, name, e.windowLabel)
	m.sloBudget.Set(budget, name, e.windowLabel)
	m.sloBurn.Set(burn, name, e.windowLabel)

	if e.alertWebhook == "" || e.alertOwner == "" {
		return
	}
	severity := ""
	switch {
	case burn >= e.alertBurnCrit:
		severity = "critical"
	case burn >= e.alertBurnWarn:
		severity = "warning"
	default:
		return
	}
	if !e.allowAlert(name + ":" + severity) {
		return
	}
	e.sendAlert(ctx, map[string]any{
		"title":                  "SLO burn rate alert",
		"severity":               severity,
		"owner":                  e.alertOwner,
		"slo":                    name,
		"window":                 e.windowLabel,
		"sli":                    sli,
		"target":                 target,
		"burn_rate":              burn,
		"error_budget_remaining": budget,
		"timestamp":              time.Now().UTC().Format(time.RFC3339),
	})
}

func (e *SLOEvaluator) allowAlert(key string) bool {
	e.alertMu.Lock()
	defer e.alertMu.Unlock()
	if last := e.lastAlerts[key]; !last.IsZero() && time.Since(last) < e.alertMinInterval {
		return false
	}
	e.lastAlerts[key] = time.Now()
	return true
}

func (e *SLOEvaluator) sendAlert(ctx context.Context, payload map[string]any) {
	postAlert(ctx, e.log, e.httpClient, e.alertWebhook, payload)
}

func postAlert(ctx context.Context, log *logger.Logger, client *http.Client, url string, payload map[string]any) {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		if log != nil {
			log.Warn("alert request build failed", "error", err)
		}
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		if log != nil {
			log.Warn("alert post failed", "error", err)
		}
		return
	}
	_ = resp.Body.Close()
	if log != nil {
		log.Info("alert sent", "title", payload["title"], "status", resp.StatusCode)
	}
}

func delta(current, prev float64) float64 {
	if current < prev {
		return current
	}
	return current - prev
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func formatWindowLabel(window time.Duration) string {
	hours := int(window.Hours())
	switch {
	case hours >= 24 && hours%24 == 0:
		return strconv.Itoa(hours/24) + "d"
	case hours >= 1:
		return strconv.Itoa(hours) + "h"
	default:
		return strconv.Itoa(int(window.Minutes())) + "m"
	}
}
