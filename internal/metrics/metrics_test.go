package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveSignal(t *testing.T) {
	m := New()
	m.ObserveSignal("topics", nil)
	m.ObserveSignal("topics", errors.New("empty vocabulary"))
	m.ObserveSignal("topics", nil)

	if got := testutil.ToFloat64(m.SignalRuns.WithLabelValues("topics", StatusOK)); got != 2 {
		t.Errorf("ok count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SignalRuns.WithLabelValues("topics", StatusDegraded)); got != 1 {
		t.Errorf("degraded count = %v, want 1", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveSignal("x", nil)
	m.ObserveRoute("topics")
	m.ObserveNarrativeFailure()
	m.SetPostsLoaded(3)
	m.ObserveRun(time.Second)
	m.ObserveFetch("golang", 2)
	m.ObserveReload(nil)
}

func TestGaugesAndCounters(t *testing.T) {
	m := New()
	m.SetPostsLoaded(42)
	m.ObserveFetch("golang", 3)
	m.ObserveFetch("golang", 2)
	m.ObserveReload(nil)
	m.ObserveReload(errors.New("parse"))

	if got := testutil.ToFloat64(m.PostsLoaded); got != 42 {
		t.Errorf("posts loaded = %v, want 42", got)
	}
	if got := testutil.ToFloat64(m.PostsFetched.WithLabelValues("golang")); got != 5 {
		t.Errorf("posts fetched = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.DatasetReloads.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed reloads = %v, want 1", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveRoute("authors")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `pulse_query_routes_total{route="authors"} 1`) {
		t.Errorf("route counter missing from exposition:\n%s", body)
	}
}
