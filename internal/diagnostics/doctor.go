// Package diagnostics checks the local environment before a federation
// setup run: configuration sanity, state directory access, provider
// endpoint reachability, and host resource headroom.
package diagnostics

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/config"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/logging"
)

// CheckStatus is the outcome of one doctor probe.
type CheckStatus string

const (
	StatusOK   CheckStatus = "ok"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

// Check is one named probe result.
type Check struct {
	Name   string      `json:"name"`
	Status CheckStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// Report is the full doctor output.
type Report struct {
	Checks  []Check       `json:"checks"`
	Metrics SystemMetrics `json:"metrics"`
}

// Healthy reports whether no check failed.
func (r Report) Healthy() bool {
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			return false
		}
	}
	return true
}

// Doctor runs environment probes against a loaded configuration.
type Doctor struct {
	cfg       *config.Config
	client    *http.Client
	collector *MetricsCollector
	logger    *logging.Logger
}

// NewDoctor creates a doctor. A nil client gets a short-timeout default.
func NewDoctor(cfg *config.Config, client *http.Client, logger *logging.Logger) *Doctor {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Doctor{
		cfg:       cfg,
		client:    client,
		collector: NewMetricsCollector(),
		logger:    logger,
	}
}

// Run executes all probes and collects host metrics.
func (d *Doctor) Run(ctx context.Context) Report {
	report := Report{
		Checks: []Check{
			d.checkConfig(),
			d.checkDomain(),
			d.checkStateDir(),
			d.checkEndpoint(ctx, "google admin api", d.cfg.Providers.Google.AdminBaseURL),
			d.checkEndpoint(ctx, "google cloud identity api", d.cfg.Providers.Google.CloudIdentityBaseURL),
			d.checkEndpoint(ctx, "microsoft graph api", d.cfg.Providers.Microsoft.GraphBaseURL),
		},
		Metrics: d.collector.Collect(),
	}

	for _, c := range report.Checks {
		d.logger.Debug("doctor probe", "name", c.Name, "status", string(c.Status), "detail", c.Detail)
	}
	return report
}

func (d *Doctor) checkConfig() Check {
	if err := d.cfg.Validate(); err != nil {
		return Check{Name: "configuration", Status: StatusFail, Detail: err.Error()}
	}
	return Check{Name: "configuration", Status: StatusOK}
}

func (d *Doctor) checkDomain() Check {
	if d.cfg.Setup.Domain == "" {
		return Check{
			Name:   "setup domain",
			Status: StatusWarn,
			Detail: "no domain configured; set setup.domain or FEDBRIDGE_SETUP_DOMAIN",
		}
	}
	return Check{Name: "setup domain", Status: StatusOK, Detail: d.cfg.Setup.Domain}
}

func (d *Doctor) checkStateDir() Check {
	dir := d.cfg.State.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Check{Name: "state directory", Status: StatusFail, Detail: err.Error()}
	}

	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return Check{Name: "state directory", Status: StatusFail, Detail: fmt.Sprintf("not writable: %v", err)}
	}
	_ = os.Remove(probe)
	return Check{Name: "state directory", Status: StatusOK, Detail: dir}
}

func (d *Doctor) checkEndpoint(ctx context.Context, name, baseURL string) Check {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, baseURL, nil)
	if err != nil {
		return Check{Name: name, Status: StatusFail, Detail: err.Error()}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return Check{Name: name, Status: StatusFail, Detail: fmt.Sprintf("unreachable: %v", err)}
	}
	defer resp.Body.Close()

	// Any HTTP answer proves reachability; auth failures are expected
	// without a session.
	return Check{Name: name, Status: StatusOK, Detail: fmt.Sprintf("%s (%d)", baseURL, resp.StatusCode)}
}
