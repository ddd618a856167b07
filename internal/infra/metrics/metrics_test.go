package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveOp(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, reg)

	m.ObserveOp("stock_out", "ok", 10*time.Millisecond)
	m.ObserveOp("stock_out", "ok", 5*time.Millisecond)
	m.ObserveOp("stock_out", "insufficient", time.Millisecond)

	if got := testutil.ToFloat64(m.ops.WithLabelValues("stock_out", "ok")); got != 2 {
		t.Errorf("expected 2 ok, got %v", got)
	}
	if got := testutil.ToFloat64(m.ops.WithLabelValues("stock_out", "insufficient")); got != 1 {
		t.Errorf("expected 1 insufficient, got %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, reg)
	m.ObserveHTTP("POST", "/api/stock-out", 201)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `sims_http_requests_total{method="POST",route="/api/stock-out",status="201"} 1`) {
		t.Errorf("metric not exposed:\n%s", body)
	}
}
