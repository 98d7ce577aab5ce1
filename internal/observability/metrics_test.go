package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveProviderCall("llm", "analyze", "ok", time.Millisecond)
	m.IncQueueFull()
	m.IncReflection("fallback")
}

func TestMetricsHandlerExposesCounters(t *testing.T) {
	m := NewMetrics()
	m.ObserveEnrichment("partial", 2*time.Second)
	m.ObserveProviderCall("vector", "embed_and_index", "transient", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`studentdiary_enrichment_outcomes_total{status="partial"} 1`,
		`studentdiary_provider_calls_total{operation="embed_and_index",outcome="transient",provider="vector"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
