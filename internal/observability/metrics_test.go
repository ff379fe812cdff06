package observability

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yungbote/briefs-backend/internal/versioning"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", 200, time.Millisecond)
	m.ObserveOperation("activate", nil, time.Millisecond)
	m.ObserveReconcile(&versioning.Summary{}, nil, time.Second)
	m.IncWorkerTick("reconcile", "ok")
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("nil handler: want=404 got=%d", rec.Code)
	}
}

func TestObserveOperationCountsContention(t *testing.T) {
	m := New()
	m.ObserveOperation("activate", versioning.Contentionf("family busy"), time.Millisecond)
	m.ObserveOperation("activate", nil, time.Millisecond)
	if got := testutil.ToFloat64(m.contention.WithLabelValues("activate")); got != 1 {
		t.Fatalf("contention: want=1 got=%v", got)
	}
	if got := testutil.ToFloat64(m.opTotal.WithLabelValues("activate", "ok")); got != 1 {
		t.Fatalf("ok ops: want=1 got=%v", got)
	}
	m.ObserveOperation("publish", errors.New("boom"), time.Millisecond)
	if got := testutil.ToFloat64(m.opTotal.WithLabelValues("publish", "internal")); got != 1 {
		t.Fatalf("internal ops: want=1 got=%v", got)
	}
}

func TestObserveReconcile(t *testing.T) {
	m := New()
	m.ObserveReconcile(&versioning.Summary{FamiliesScanned: 4, FamiliesRepaired: 2, VersionsActivated: 1, VersionsDeactivated: 3}, nil, time.Second)
	m.ObserveReconcile(&versioning.Summary{FamiliesScanned: 4, FamiliesRepaired: 2, DryRun: true}, nil, time.Second)
	if got := testutil.ToFloat64(m.reconcileFamilies.WithLabelValues("repaired")); got != 2 {
		t.Fatalf("repaired: dry runs must not count, want=2 got=%v", got)
	}
	if got := testutil.ToFloat64(m.reconcileVersions.WithLabelValues("deactivated")); got != 3 {
		t.Fatalf("deactivated: want=3 got=%v", got)
	}
	if got := testutil.ToFloat64(m.reconcileRuns.WithLabelValues("ok", "dry_run")); got != 1 {
		t.Fatalf("dry run runs: want=1 got=%v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "briefs_reconcile_runs_total") {
		t.Fatalf("exposition missing reconcile runs")
	}
}

func TestParseHeaders(t *testing.T) {
	h := ParseHeaders(" a=1, b = 2 ,bad,c=")
	if len(h) != 2 || h["a"] != "1" || h["b"] != "2" {
		t.Fatalf("headers: got=%v", h)
	}
	if ParseHeaders("") != nil {
		t.Fatalf("empty: want nil")
	}
}
