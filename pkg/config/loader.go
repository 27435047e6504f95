package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ServerEnv holds the environment overrides of the server entry point
type ServerEnv struct {
	ConfigFile string `env:"CONFIG_FILE" envDefault:"config.yaml"`
	Port       int    `env:"PORT"`
}

// LoadServerEnv reads server overrides from the process environment
func LoadServerEnv() (*ServerEnv, error) {
	var se ServerEnv
	if err := env.Parse(&se); err != nil {
		return nil, fmt.Errorf("failed to parse server environment: %w", err)
	}
	return &se, nil
}

// Load reads and parses the YAML configuration file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the config
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply defaults
	cfg.applyDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault behaves like Load but returns the defaults when the file
// does not exist
func LoadOrDefault(filename string) (*Config, error) {
	cfg, err := Load(filename)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg = &Config{}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults sets default values for unspecified configuration options
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "30s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "30s"
	}
	if c.Server.MaxRequestSize == 0 {
		c.Server.MaxRequestSize = 10 * 1024 * 1024 // 10MB
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "30s"
	}
	if c.Server.WebhookPath == "" {
		c.Server.WebhookPath = "/webhook"
	}

	// Secrets defaults
	if c.Secrets.Provider == "" {
		c.Secrets.Provider = SecretsProviderAWS
	}
	if c.Secrets.Provider == SecretsProviderFile && c.Secrets.Dir == "" {
		c.Secrets.Dir = "/secrets"
	}
}

// ApplyEnv overlays environment overrides onto the file configuration and
// validates the result
func (c *Config) ApplyEnv(se *ServerEnv) error {
	if se != nil && se.Port != 0 {
		c.Server.Port = se.Port
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration after environment overrides: %w", err)
	}
	return nil
}

// Validate checks the configuration for required fields and valid values
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", c.Server.Port)
	}

	if c.Server.MaxRequestSize < 0 {
		return fmt.Errorf("server.max_request_size must not be negative")
	}

	if !strings.HasPrefix(c.Server.WebhookPath, "/") {
		return fmt.Errorf("server.webhook_path must start with '/', got: %s", c.Server.WebhookPath)
	}

	if c.Secrets.Provider != SecretsProviderAWS && c.Secrets.Provider != SecretsProviderFile {
		return fmt.Errorf("secrets.provider must be 'aws' or 'file', got: %s", c.Secrets.Provider)
	}

	// Validate duration strings
	durations := map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
	}

	for name, value := range durations {
		if _, err := c.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	return nil
}
