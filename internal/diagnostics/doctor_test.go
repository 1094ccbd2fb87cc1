package diagnostics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/config"
)

func testConfig(t *testing.T, upstream string) *config.Config {
	t.Helper()
	loader := config.NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	cfg.State.Dir = t.TempDir()
	cfg.Setup.Domain = "example.com"
	cfg.Providers.Google.AdminBaseURL = upstream
	cfg.Providers.Google.CloudIdentityBaseURL = upstream
	cfg.Providers.Microsoft.GraphBaseURL = upstream
	return cfg
}

func TestDoctor_AllHealthy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized) // reachable is enough
	}))
	defer upstream.Close()

	d := NewDoctor(testConfig(t, upstream.URL), upstream.Client(), nil)
	report := d.Run(context.Background())

	if !report.Healthy() {
		t.Fatalf("report unhealthy: %+v", report.Checks)
	}
	if len(report.Checks) != 6 {
		t.Fatalf("got %d checks, want 6", len(report.Checks))
	}
}

func TestDoctor_UnreachableEndpointFails(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close() // now unreachable

	d := NewDoctor(testConfig(t, upstream.URL), nil, nil)
	report := d.Run(context.Background())

	if report.Healthy() {
		t.Fatal("expected failing endpoint checks")
	}
	failed := 0
	for _, c := range report.Checks {
		if c.Status == StatusFail {
			failed++
		}
	}
	if failed != 3 {
		t.Fatalf("failed = %d, want the 3 endpoint probes", failed)
	}
}

func TestDoctor_MissingDomainWarns(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer upstream.Close()

	cfg := testConfig(t, upstream.URL)
	cfg.Setup.Domain = ""

	report := NewDoctor(cfg, upstream.Client(), nil).Run(context.Background())
	if !report.Healthy() {
		t.Fatalf("warn should not fail the report: %+v", report.Checks)
	}

	var domainCheck *Check
	for i := range report.Checks {
		if report.Checks[i].Name == "setup domain" {
			domainCheck = &report.Checks[i]
		}
	}
	if domainCheck == nil || domainCheck.Status != StatusWarn {
		t.Fatalf("domain check = %+v, want warn", domainCheck)
	}
}

func TestMetricsCollector_Collect(t *testing.T) {
	c := NewMetricsCollector()
	stats := c.Collect()

	if stats.MemTotalMB <= 0 {
		t.Errorf("mem total = %f, want > 0", stats.MemTotalMB)
	}
	if stats.CPUThreads <= 0 {
		t.Errorf("cpu threads = %d, want > 0", stats.CPUThreads)
	}
	// Second sample can report a usage delta.
	_ = c.Collect()
}
