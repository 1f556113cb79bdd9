package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/casehall-backend/internal/platform/envutil"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqTotal *Counter
	apiReqError *Counter
	apiReqGood  *Counter
	rateLimited *CounterVec

	aggregateOps       *CounterVec
	aggregateLatency   *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec

	feedBuilds     *CounterVec
	feedLatency    *HistogramVec
	feedCandidates *HistogramVec
	feedDegraded   *CounterVec
	opsLatency     *HistogramVec
	opsItems       *HistogramVec
	eventsOut      *CounterVec
	selectionDrift *GaugeVec

	pgStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge

	sloCompliance *GaugeVec
	sloBudget     *GaugeVec
	sloBurn       *GaugeVec

	sloLatencyThreshold float64
	all                 []promWriter
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	return envutil.Duration("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
}

// Init builds the process-wide registry. It returns nil when metrics are
// disabled; every method is safe on a nil receiver.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics(envutil.Float("SLO_API_LATENCY_THRESHOLD_SECONDS", 0.5))
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

func newMetrics(latencyThreshold float64) *Metrics {
	secs := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
	m := &Metrics{
		apiRequests: NewCounterVec("ch_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("ch_api_request_duration_seconds", "API latency by method/route/status.", []string{"method", "route", "status"}, secs),
		apiInflight: NewGauge("ch_api_inflight_requests", "In-flight API requests."),
		apiReqTotal: NewCounter("ch_api_requests_total_all", "API requests (all)."),
		apiReqError: NewCounter("ch_api_requests_error_total", "API requests answered with 5xx."),
		apiReqGood:  NewCounter("ch_api_requests_good_total", "API requests under the latency SLO threshold."),
		rateLimited: NewCounterVec("ch_api_rate_limited_total", "Requests rejected by the rate limiter.", []string{"route"}),

		aggregateOps:       NewCounterVec("ch_aggregate_operations_total", "Aggregate writes by op/status.", []string{"op", "status"}),
		aggregateLatency:   NewHistogramVec("ch_aggregate_operation_duration_seconds", "Aggregate write latency by op.", []string{"op"}, secs),
		aggregateConflicts: NewCounterVec("ch_aggregate_conflicts_total", "Aggregate writes rejected with a conflict, by reason code.", []string{"op", "reason"}),
		aggregateRetries:   NewCounterVec("ch_aggregate_retryable_total", "Aggregate writes failed with a retryable error.", []string{"op"}),

		feedBuilds:     NewCounterVec("ch_feed_builds_total", "Case hall feed builds by variant/sort/status.", []string{"variant", "sort", "status"}),
		feedLatency:    NewHistogramVec("ch_feed_build_duration_seconds", "Case hall feed build latency.", []string{"variant"}, secs),
		feedCandidates: NewHistogramVec("ch_feed_candidates", "Candidates scored per feed build.", []string{"variant"}, []float64{0, 10, 25, 50, 100, 200, 300, 500, 1000}),
		feedDegraded:   NewCounterVec("ch_feed_degraded_total", "Feed builds served with a fallback input.", []string{"reason"}),
		opsLatency:     NewHistogramVec("ch_ops_priority_duration_seconds", "Ops priority list latency.", []string{"status"}, secs),
		opsItems:       NewHistogramVec("ch_ops_priority_items", "Cases returned per ops priority list.", nil, []float64{0, 10, 25, 50, 100, 250, 500}),
		eventsOut:      NewCounterVec("ch_events_published_total", "Lifecycle events published by type/status.", []string{"event", "status"}),
		selectionDrift: NewGaugeVec("ch_selection_drift_cases", "Cases whose selection disagrees with bid status, by problem.", []string{"problem"}),

		pgStats:   NewGaugeVec("ch_postgres_pool", "database/sql pool stats.", []string{"stat"}),
		redisUp:   NewGauge("ch_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing: NewGauge("ch_redis_ping_seconds", "Redis ping latency."),

		sloCompliance: NewGaugeVec("ch_slo_compliance", "Rolling SLI per objective.", []string{"slo", "window"}),
		sloBudget:     NewGaugeVec("ch_slo_error_budget_remaining", "Remaining error budget per objective.", []string{"slo", "window"}),
		sloBurn:       NewGaugeVec("ch_slo_burn_rate", "Error budget burn rate per objective.", []string{"slo", "window"}),

		sloLatencyThreshold: latencyThreshold,
	}
	m.all = []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqTotal, m.apiReqError, m.apiReqGood, m.rateLimited,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries,
		m.feedBuilds, m.feedLatency, m.feedCandidates, m.feedDegraded, m.opsLatency, m.opsItems,
		m.eventsOut, m.selectionDrift,
		m.pgStats, m.redisUp, m.redisPing,
		m.sloCompliance, m.sloBudget, m.sloBurn,
	}
	return m
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed && log != nil {
			log.Error("metrics server failed", "error", err, "addr", addr)
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, pw := range m.all {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	method = orDefault(method, "UNKNOWN")
	route = orDefault(route, "unknown")
	status = orDefault(status, "0")
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
	if m.sloLatencyThreshold > 0 && dur.Seconds() <= m.sloLatencyThreshold {
		m.apiReqGood.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) IncRateLimited(route string) {
	if m != nil {
		m.rateLimited.Inc(orDefault(route, "unknown"))
	}
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	op = orDefault(op, "unknown")
	m.aggregateOps.Inc(op, orDefault(status, "unknown"))
	m.aggregateLatency.Observe(dur.Seconds(), op)
}

func (m *Metrics) IncAggregateConflict(op, reason string) {
	if m != nil {
		m.aggregateConflicts.Inc(orDefault(op, "unknown"), orDefault(reason, "unspecified"))
	}
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m != nil {
		m.aggregateRetries.Inc(orDefault(op, "unknown"))
	}
}

// ObserveFeedBuild records one case hall feed build.
func (m *Metrics) ObserveFeedBuild(variant, sortMode, status string, candidates int, dur time.Duration) {
	if m == nil {
		return
	}
	variant = orDefault(variant, "A")
	m.feedBuilds.Inc(variant, orDefault(sortMode, "default"), orDefault(status, "ok"))
	m.feedLatency.Observe(dur.Seconds(), variant)
	m.feedCandidates.Observe(float64(candidates), variant)
}

func (m *Metrics) IncFeedDegraded(reason string) {
	if m != nil {
		m.feedDegraded.Inc(orDefault(reason, "unknown"))
	}
}

func (m *Metrics) ObserveOpsPriority(status string, items int, dur time.Duration) {
	if m == nil {
		return
	}
	m.opsLatency.Observe(dur.Seconds(), orDefault(status, "ok"))
	m.opsItems.Observe(float64(items))
}

func (m *Metrics) IncEventPublished(event, status string) {
	if m != nil {
		m.eventsOut.Inc(orDefault(event, "unknown"), orDefault(status, "ok"))
	}
}

// SetSelectionDrift publishes the latest consistency check result per problem kind.
func (m *Metrics) SetSelectionDrift(counts map[string]int) {
	if m == nil {
		return
	}
	for problem, n := range counts {
		m.selectionDrift.Set(float64(n), orDefault(problem, "unknown"))
	}
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: postgres stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
				m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.pgStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

// StartRedisCollector pings rdb on the scrape interval. The client is owned by the caller.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func isServerErrorStatus(status string) bool {
	code, err := strconv.Atoi(strings.TrimSpace(status))
	return err == nil && code >= 500
}
