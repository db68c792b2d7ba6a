package metrics

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	body := w.Body.String()
	if len(body) == 0 {
		t.Error("Expected non-empty metrics response")
	}
	if !strings.Contains(body, "go_") {
		t.Error("Expected default Go collector metrics in response")
	}
}

func TestStageCounters(t *testing.T) {
	StageRunsTotal.WithLabelValues("transform", "ok").Inc()
	RowsProcessed.WithLabelValues("transform").Add(42)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	var found *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "fraudetl_rows_processed_total" {
			found = mf
		}
	}
	if found == nil {
		t.Fatal("fraudetl_rows_processed_total not registered")
	}

	var value float64
	for _, m := range found.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "stage" && l.GetValue() == "transform" {
				value = m.GetCounter().GetValue()
			}
		}
	}
	if value < 42 {
		t.Errorf("expected transform row counter >= 42, got %f", value)
	}
}

// The collector loops until its context ends, so call sites must run
// it in a goroutine with a cancellable context. This pins both halves
// of that contract: it keeps sampling while the context lives, and it
// returns promptly once the context is cancelled.
func TestStartDBStatsCollector_RunsUntilCancelled(t *testing.T) {
	db, err := sql.Open("postgres", "host=localhost dbname=unused sslmode=disable")
	if err != nil {
		t.Fatalf("open handle: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		StartDBStatsCollector(ctx, "warehouse", db, time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("collector returned while its context was still live")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not return after context cancellation")
	}
}
