package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"thena/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record samples so counters are non-zero
	observability.ObserveAPI("lookup", 200, 12*time.Millisecond)
	observability.ObserveStore("draft", "set")

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	if !strings.Contains(out, "thena_api_requests_total") {
		t.Fatalf("expected thena_api_requests_total in output")
	}
	if !strings.Contains(out, "thena_store_events_total") {
		t.Fatalf("expected thena_store_events_total in output")
	}
}

// The default registry backs the METRICS_ADDR listener used by the
// interactive client, which never builds its own registry.
func TestDefaultRegistryCarriesVecs(t *testing.T) {
	// vecs with no children are skipped by Gather; record one of each
	observability.ObserveAPI("lookup", 200, 5*time.Millisecond)
	observability.ObserveStore("draft", "set")

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, name := range []string{"thena_api_requests_total", "thena_api_request_duration_seconds", "thena_store_events_total"} {
		if !found[name] {
			t.Fatalf("expected %s in default registry", name)
		}
	}
}
