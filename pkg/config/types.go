package config

import "time"

// SecretsProvider selects where secret references are resolved
type SecretsProvider string

const (
	SecretsProviderAWS  SecretsProvider = "aws"
	SecretsProviderFile SecretsProvider = "file"
)

// Config is the optional file configuration of the HTTP server entry point
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Secrets SecretsConfig `yaml:"secrets"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int    `yaml:"port"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	MaxRequestSize  int64  `yaml:"max_request_size"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	WebhookPath     string `yaml:"webhook_path"`
}

// SecretsConfig selects the secret store backing the *_SM_ARN references
type SecretsConfig struct {
	Provider SecretsProvider `yaml:"provider"`
	Dir      string          `yaml:"dir"`
}

// ParseDuration converts string duration to time.Duration
func (c *Config) ParseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
