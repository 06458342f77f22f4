package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandler_ExposesObservations(t *testing.T) {
	ObserveSource("wikipedia", ResultOK, 120*time.Millisecond)
	ObserveLate("gnews")
	ObserveBackend("openai", ResultError)
	ObserveVerdict("UNCERTAIN", "fallback_uncertain", time.Second)

	server := httptest.NewServer(Handler())
	defer server.Close()

	resp, err := server.Client().Get(server.URL)
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	for _, want := range []string{
		`newscheck_source_requests_total{result="ok",source="wikipedia"}`,
		`newscheck_source_late_results_total{source="gnews"}`,
		`newscheck_backend_attempts_total{provider="openai",result="error"}`,
		`newscheck_verdicts_total{label="UNCERTAIN",outcome="fallback_uncertain"}`,
		"newscheck_evaluation_duration_seconds",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected metrics output to contain %s", want)
		}
	}
}
