package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestMetricsServer(t *testing.T) {
	srv := Start(8899)
	// Give it a tiny bit of time to start up
	time.Sleep(100 * time.Millisecond)

	defer srv.Stop(context.Background())

	QueriesTotal.WithLabelValues("google-cse", "ok").Inc()
	ResultsTotal.WithLabelValues("google-cse").Add(10)
	FindingsTotal.WithLabelValues("en").Inc()
	NewFindingsTotal.Inc()
	RunDuration.Observe(42)

	resp, err := http.Get("http://localhost:8899/metrics")
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	output := string(body)

	if !strings.Contains(output, `officetrack_queries_total{provider="google-cse",status="ok"}`) {
		t.Errorf("expected officetrack_queries_total metric")
	}

	if !strings.Contains(output, `officetrack_results_total{provider="google-cse"} 10`) {
		t.Errorf("expected officetrack_results_total metric")
	}

	if !strings.Contains(output, "officetrack_run_duration_seconds_bucket") {
		t.Errorf("expected officetrack_run_duration_seconds metric")
	}
}
