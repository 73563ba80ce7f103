package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateBaseURL validates the remote API base URL
func (v *Validator) ValidateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("moltbook base_url cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid moltbook base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("moltbook base_url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("moltbook base_url is missing a host")
	}

	return nil
}

// ValidatePort validates a TCP listen port
func (v *Validator) ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// ValidateTimeout validates the remote request timeout
func (v *Validator) ValidateTimeout(seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", seconds)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidatePort(cfg.Server.Port); err != nil {
		errors = append(errors, fmt.Errorf("server: %w", err))
	}
	if cfg.Server.Host == "" {
		errors = append(errors, fmt.Errorf("server: host cannot be empty"))
	}

	if err := v.ValidateBaseURL(cfg.Moltbook.BaseURL); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateTimeout(cfg.Moltbook.TimeoutSeconds); err != nil {
		errors = append(errors, fmt.Errorf("moltbook: %w", err))
	}

	if cfg.Logging.Level != "" {
		if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Logging.MaxSize < 0 {
		errors = append(errors, fmt.Errorf("logging max_size must be >= 0"))
	}
	if cfg.Logging.MaxAge < 0 {
		errors = append(errors, fmt.Errorf("logging max_age must be >= 0"))
	}

	return errors
}
