package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all control plane configuration, loaded from environment
// variables. Defaults target a local single-node cluster.
type Config struct {
	// Server
	Port        int    `env:"PORT" envDefault:"3001"`
	Environment string `env:"NODE_ENV" envDefault:"development"`

	// Persistence
	DBPath string `env:"DB_PATH" envDefault:"./data"`

	// Cluster access. An empty KUBECONFIG selects in-cluster configuration.
	Kubeconfig    string `env:"KUBECONFIG"`
	HelmChartPath string `env:"HELM_CHART_PATH" envDefault:"./charts/wordpress"`

	// Store provisioning
	BaseDomain         string `env:"BASE_DOMAIN" envDefault:"127.0.0.1.nip.io"`
	MaxStores          int    `env:"MAX_STORES" envDefault:"10"`
	ProvisionTimeoutMS int    `env:"PROVISION_TIMEOUT_MS" envDefault:"600000"`

	// Rate limiting
	RateLimitWindowMS    int `env:"RATE_LIMIT_WINDOW_MS" envDefault:"60000"`
	RateLimitMaxRequests int `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"30"`
	RateLimitMaxCreates  int `env:"RATE_LIMIT_MAX_CREATES" envDefault:"5"`

	// WordPress admin identity injected into every provisioned store
	WPAdminUser  string `env:"WP_ADMIN_USER" envDefault:"admin"`
	WPAdminEmail string `env:"WP_ADMIN_EMAIL" envDefault:"admin@example.com"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config from env: %w", err)
	}
	if cfg.MaxStores < 1 {
		return nil, fmt.Errorf("MAX_STORES must be at least 1, got %d", cfg.MaxStores)
	}
	if cfg.ProvisionTimeoutMS < 1 {
		return nil, fmt.Errorf("PROVISION_TIMEOUT_MS must be positive, got %d", cfg.ProvisionTimeoutMS)
	}
	return cfg, nil
}

// ListenAddr returns the address the HTTP server should listen on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ProvisionTimeout returns the provisioning deadline as a duration.
func (c *Config) ProvisionTimeout() time.Duration {
	return time.Duration(c.ProvisionTimeoutMS) * time.Millisecond
}

// RateLimitWindow returns the rate limiting window as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMS) * time.Millisecond
}

// Production reports whether the control plane runs in production mode.
// In production, internal error responses omit messages and stack traces.
func (c *Config) Production() bool {
	return c.Environment == "production"
}
