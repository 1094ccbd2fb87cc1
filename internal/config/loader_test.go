package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoader_Defaults(t *testing.T) {
	cfg, err := loadFromDir(t, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "info" || cfg.Log.Format != "auto" {
		t.Errorf("log defaults = %+v", cfg.Log)
	}
	if cfg.Server.Port != 8787 {
		t.Errorf("server.port = %d, want 8787", cfg.Server.Port)
	}
	if cfg.State.Backend != "json" {
		t.Errorf("state.backend = %s, want json", cfg.State.Backend)
	}
	if cfg.Setup.AutoCheckInterval != 60*time.Second {
		t.Errorf("auto_check_interval = %v, want 60s", cfg.Setup.AutoCheckInterval)
	}
	if cfg.Providers.Microsoft.GraphBaseURL == "" {
		t.Error("graph base URL default missing")
	}
}

func loadFromDir(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	dir := t.TempDir()
	if yaml != "" {
		path := filepath.Join(dir, ".fedbridge.yaml")
		if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
			t.Fatalf("writing config: %v", err)
		}
		return NewLoader().WithConfigFile(path).Load()
	}
	return NewLoader().WithConfigFile("").Load()
}

func TestLoader_FileOverridesDefaults(t *testing.T) {
	cfg, err := loadFromDir(t, `
log:
  level: debug
server:
  port: 9999
setup:
  domain: example.com
  tenant_id: tenant-1
`)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %s, want debug", cfg.Log.Level)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Setup.Domain != "example.com" || cfg.Setup.TenantID != "tenant-1" {
		t.Errorf("setup = %+v", cfg.Setup)
	}
}

func TestLoader_EnvironmentOverrides(t *testing.T) {
	t.Setenv("FEDBRIDGE_LOG_LEVEL", "warn")
	t.Setenv("FEDBRIDGE_SETUP_DOMAIN", "env.example")

	cfg, err := loadFromDir(t, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %s, want warn from env", cfg.Log.Level)
	}
	if cfg.Setup.Domain != "env.example" {
		t.Errorf("setup.domain = %s, want env.example", cfg.Setup.Domain)
	}
}

func TestValidate(t *testing.T) {
	valid, err := loadFromDir(t, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad backend", func(c *Config) { c.State.Backend = "bolt" }},
		{"bad url", func(c *Config) { c.Providers.Google.AdminBaseURL = "not a url" }},
		{"bad attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
