package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBaseURL(t *testing.T) {
	v := NewValidator()

	t.Run("accepts https", func(t *testing.T) {
		assert.NoError(t, v.ValidateBaseURL("https://www.moltbook.com/api/v1"))
	})

	t.Run("accepts http for local testing", func(t *testing.T) {
		assert.NoError(t, v.ValidateBaseURL("http://localhost:8080/api/v1"))
	})

	t.Run("rejects empty", func(t *testing.T) {
		assert.Error(t, v.ValidateBaseURL(""))
	})

	t.Run("rejects other schemes", func(t *testing.T) {
		assert.Error(t, v.ValidateBaseURL("ftp://moltbook.com"))
	})

	t.Run("rejects missing host", func(t *testing.T) {
		assert.Error(t, v.ValidateBaseURL("https://"))
	})
}

func TestValidatePort(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidatePort(8000))
	assert.NoError(t, v.ValidatePort(1))
	assert.NoError(t, v.ValidatePort(65535))
	assert.Error(t, v.ValidatePort(0))
	assert.Error(t, v.ValidatePort(-1))
	assert.Error(t, v.ValidatePort(70000))
}

func TestValidateTimeout(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateTimeout(30))
	assert.Error(t, v.ValidateTimeout(0))
	assert.Error(t, v.ValidateTimeout(-5))
}

func TestValidateLogLevel(t *testing.T) {
	v := NewValidator()

	for _, level := range []string{"debug", "info", "warn", "error"} {
		assert.NoError(t, v.ValidateLogLevel(level))
	}
	assert.Error(t, v.ValidateLogLevel("verbose"))
	assert.Error(t, v.ValidateLogLevel(""))
}

func TestValidateConfig(t *testing.T) {
	v := NewValidator()

	t.Run("default config has no errors", func(t *testing.T) {
		errs := v.ValidateConfig(DefaultConfig())
		assert.Empty(t, errs)
	})

	t.Run("collects multiple errors", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Server.Port = 0
		cfg.Moltbook.BaseURL = ""
		cfg.Moltbook.TimeoutSeconds = 0

		errs := v.ValidateConfig(cfg)
		assert.Len(t, errs, 3)
	})

	t.Run("empty log level is allowed", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Logging.Level = ""

		errs := v.ValidateConfig(cfg)
		assert.Empty(t, errs)
	})
}
