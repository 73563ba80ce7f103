package config

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
)

// Config represents the main Clawbook configuration
type Config struct {
	// Local web console
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Remote Moltbook API
	Moltbook MoltbookConfig `json:"moltbook" mapstructure:"moltbook"`

	// Durable agent credential file
	Credentials CredentialsConfig `json:"credentials" mapstructure:"credentials"`

	// Operation journal
	Activity ActivityConfig `json:"activity" mapstructure:"activity"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Tracing
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds web console listener configuration
type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// Addr returns the listen address in host:port form
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// MoltbookConfig holds remote API configuration
type MoltbookConfig struct {
	BaseURL        string `json:"base_url" mapstructure:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// CredentialsConfig holds the credential store location
type CredentialsConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// ActivityConfig holds operation journal configuration
type ActivityConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// DefaultBaseURL is the production Moltbook API root.
const DefaultBaseURL = "https://www.moltbook.com/api/v1"

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Moltbook: MoltbookConfig{
			BaseURL:        DefaultBaseURL,
			TimeoutSeconds: 30,
		},
		Activity: ActivityConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Tracing: TracingConfig{
			Enabled: true,
		},
		DataDir: "",
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validator := NewValidator()
	if errs := validator.ValidateConfig(c); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errs[0])
	}
	return nil
}
