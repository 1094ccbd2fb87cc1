// Package config handles configuration loading, validation, and live
// reload for the fedbridge server and CLI.
package config

import "time"

// Config is the complete application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	State     StateConfig     `mapstructure:"state"`
	Setup     SetupConfig     `mapstructure:"setup"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Retry     RetryConfig     `mapstructure:"retry"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text, or auto
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	CORSOrigins []string      `mapstructure:"cors_origins"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// StateConfig controls progress persistence.
type StateConfig struct {
	Backend string `mapstructure:"backend"` // json or sqlite
	Dir     string `mapstructure:"dir"`
}

// SetupConfig identifies the federation target.
type SetupConfig struct {
	Domain            string        `mapstructure:"domain"`
	TenantID          string        `mapstructure:"tenant_id"`
	AutoCheckInterval time.Duration `mapstructure:"auto_check_interval"`
}

// ProvidersConfig carries per-provider endpoint overrides, mainly for
// tests and sovereign-cloud deployments.
type ProvidersConfig struct {
	Google    GoogleProviderConfig    `mapstructure:"google"`
	Microsoft MicrosoftProviderConfig `mapstructure:"microsoft"`
}

// GoogleProviderConfig overrides the Google API hosts.
type GoogleProviderConfig struct {
	AdminBaseURL         string `mapstructure:"admin_base_url"`
	CloudIdentityBaseURL string `mapstructure:"cloud_identity_base_url"`
}

// MicrosoftProviderConfig overrides the Graph host.
type MicrosoftProviderConfig struct {
	GraphBaseURL string `mapstructure:"graph_base_url"`
}

// RetryConfig tunes the provider retry policy.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}
