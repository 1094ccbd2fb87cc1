package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var problems []string

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level: unknown level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "", "json", "text", "auto":
	default:
		problems = append(problems, fmt.Sprintf("log.format: unknown format %q", c.Log.Format))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port: %d out of range", c.Server.Port))
	}

	switch c.State.Backend {
	case "", "json", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("state.backend: unknown backend %q", c.State.Backend))
	}

	for key, raw := range map[string]string{
		"providers.google.admin_base_url":          c.Providers.Google.AdminBaseURL,
		"providers.google.cloud_identity_base_url": c.Providers.Google.CloudIdentityBaseURL,
		"providers.microsoft.graph_base_url":       c.Providers.Microsoft.GraphBaseURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("%s: invalid URL %q", key, raw))
		}
	}

	if c.Retry.MaxAttempts < 1 {
		problems = append(problems, "retry.max_attempts: must be at least 1")
	}
	if c.Setup.AutoCheckInterval < 0 {
		problems = append(problems, "setup.auto_check_interval: must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}
