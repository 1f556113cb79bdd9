package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveAggregateOperation("op", "success", time.Millisecond)
	m.ObserveFeedBuild("A", "default", "ok", 3, time.Millisecond)
	m.SetSelectionDrift(map[string]int{"dangling_selection": 1})
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil write: %v", err)
	}
}

func TestWritePrometheusRendersAggregateSeries(t *testing.T) {
	m := newMetrics(0.5)
	m.ObserveAggregateOperation("Marketplace.BidLifecycle.SelectBid", "conflict", 20*time.Millisecond)
	m.IncAggregateConflict("Marketplace.BidLifecycle.SelectBid", "BID_SELECTED")
	m.ObserveFeedBuild("B", "default", "ok", 42, 30*time.Millisecond)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`ch_aggregate_operations_total{op="Marketplace.BidLifecycle.SelectBid",status="conflict"} 1`,
		`ch_aggregate_conflicts_total{op="Marketplace.BidLifecycle.SelectBid",reason="BID_SELECTED"} 1`,
		`ch_feed_builds_total{variant="B",sort="default",status="ok"} 1`,
		`ch_feed_candidates_bucket{variant="B",le="50"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing series %q in:\n%s", want, out)
		}
	}
}

func TestObserveAPICountsErrorsAndGoodRequests(t *testing.T) {
	m := newMetrics(0.1)
	m.ObserveAPI("GET", "/api/case-hall", "200", 50*time.Millisecond)
	m.ObserveAPI("GET", "/api/case-hall", "503", 500*time.Millisecond)
	if got := m.apiReqTotal.Value(); got != 2 {
		t.Fatalf("total: want=2 got=%v", got)
	}
	if got := m.apiReqError.Value(); got != 1 {
		t.Fatalf("errors: want=1 got=%v", got)
	}
	if got := m.apiReqGood.Value(); got != 1 {
		t.Fatalf("good: want=1 got=%v", got)
	}
}

func TestSLOEvaluatorComputesSelectSuccess(t *testing.T) {
	m := newMetrics(0.5)
	e := newSLOEvaluator(m, nil)
	for i := 0; i < 9; i++ {
		m.ObserveAggregateOperation(selectBidOp, "success", time.Millisecond)
	}
	m.ObserveAggregateOperation(selectBidOp, "internal", time.Millisecond)
	m.ObserveAggregateOperation(selectBidOp, "conflict", time.Millisecond)
	e.evaluate(t.Context())

	got := m.sloCompliance.Value("bid_select_success", e.windowLabel)
	if got < 0.899 || got > 0.901 {
		t.Fatalf("select sli: want=0.9 got=%v", got)
	}
}

func TestFormatWindowLabel(t *testing.T) {
	cases := map[time.Duration]string{
		720 * time.Hour:  "30d",
		6 * time.Hour:    "6h",
		30 * time.Minute: "30m",
	}
	for in, want := range cases {
		if got := formatWindowLabel(in); got != want {
			t.Fatalf("%v: want=%s got=%s", in, want, got)
		}
	}
}
