package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestCollector(enabled bool) *Collector {
	return NewCollector(&config.MetricsConfig{Enabled: enabled, Namespace: "hubflow"}, prometheus.NewRegistry())
}

func TestRecordEligibility(t *testing.T) {
	c := newTestCollector(true)

	c.RecordEligibility("eligible", time.Millisecond, []string{"r1", "r2"})
	c.RecordEligibility("blocked", time.Millisecond, []string{"r1"})
	c.RecordEligibility("degraded", time.Millisecond, nil)

	if got := testutil.ToFloat64(c.eligibility.evaluationsTotal.WithLabelValues("eligible")); got != 1 {
		t.Errorf("eligible evaluations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.eligibility.ruleHits.WithLabelValues("r1")); got != 2 {
		t.Errorf("r1 hits = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(c.eligibility.evaluationsTotal); got != 3 {
		t.Errorf("outcome series = %d, want 3", got)
	}
}

func TestRecordRuleReload(t *testing.T) {
	c := newTestCollector(true)

	c.RecordRuleReload("file", nil, time.Millisecond)
	c.RecordRuleReload("file", errors.New("boom"), time.Millisecond)
	c.SetActiveRules(map[string]int{"pricing": 3, "matching": 2}, 7)

	if got := testutil.ToFloat64(c.rules.reloadsTotal.WithLabelValues("file", "error")); got != 1 {
		t.Errorf("failed reloads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.rules.active.WithLabelValues("pricing")); got != 3 {
		t.Errorf("active pricing rules = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.rules.version); got != 7 {
		t.Errorf("version = %v, want 7", got)
	}
}

func TestReconciliationMetrics(t *testing.T) {
	c := newTestCollector(true)

	c.RecordPairScored(0.8)
	c.RecordPairScored(0.4)
	c.RecordDecision("auto_matched")
	c.RecordPairFailure("auto_match")
	c.RecordRiskFlag("duplicate_payment", "high")
	c.RecordReconciliationRun("all", "success", time.Second)

	if got := testutil.ToFloat64(c.reconciliation.pairsScored); got != 2 {
		t.Errorf("pairs scored = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.reconciliation.riskFlags.WithLabelValues("duplicate_payment", "high")); got != 1 {
		t.Errorf("risk flags = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.reconciliation.runsTotal.WithLabelValues("all", "success")); got != 1 {
		t.Errorf("runs = %v, want 1", got)
	}
}

func TestDisabledAndNilCollector(t *testing.T) {
	c := newTestCollector(false)
	c.RecordDecision("auto_matched")
	if got := testutil.ToFloat64(c.reconciliation.decisions.WithLabelValues("auto_matched")); got != 0 {
		t.Errorf("disabled collector recorded %v", got)
	}

	var nilCollector *Collector
	nilCollector.RecordEligibility("eligible", time.Millisecond, nil)
	nilCollector.RecordRuleReload("file", nil, time.Millisecond)
	nilCollector.RecordPairScored(1)
}

func TestHandler(t *testing.T) {
	c := newTestCollector(true)
	c.RecordDecision("pending_review")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "hubflow_reconciliation_decisions_total") {
		t.Errorf("decision metric missing from exposition")
	}
}
