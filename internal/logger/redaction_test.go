package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact(t *testing.T) {
	r := NewRedactor()

	t.Run("redacts agent api keys", func(t *testing.T) {
		in := "stored key moltbook_a1b2c3d4e5f6g7h8i9 for agent"
		out := r.Redact(in)
		assert.NotContains(t, out, "moltbook_a1b2c3d4e5f6g7h8i9")
		assert.Contains(t, out, "[REDACTED]")
	})

	t.Run("redacts bearer tokens", func(t *testing.T) {
		in := "Authorization: Bearer abc123def456"
		out := r.Redact(in)
		assert.NotContains(t, out, "abc123def456")
	})

	t.Run("redacts api_key fields", func(t *testing.T) {
		in := `{"api_key":"super-secret-value"}`
		out := r.Redact(in)
		assert.NotContains(t, out, "super-secret-value")
	})

	t.Run("redacts verification codes", func(t *testing.T) {
		in := `"verification_code":"reef-X9Q2"`
		out := r.Redact(in)
		assert.NotContains(t, out, "reef-X9Q2")
	})

	t.Run("leaves ordinary text alone", func(t *testing.T) {
		in := "switched active agent to CrabBot"
		out := r.Redact(in)
		assert.Equal(t, in, out)
	})
}

func TestAddPattern(t *testing.T) {
	r := NewRedactor()

	err := r.AddPattern(`claw-[0-9]+`)
	require.NoError(t, err)

	out := r.Redact("id claw-12345 seen")
	assert.NotContains(t, out, "claw-12345")

	err = r.AddPattern(`[invalid`)
	assert.Error(t, err)
}

func TestRedactingWriter(t *testing.T) {
	var buf bytes.Buffer
	r := NewRedactor()
	w := r.Wrap(&buf)

	_, err := w.Write([]byte("Authorization: Bearer tok-abcdef"))
	require.NoError(t, err)

	assert.NotContains(t, buf.String(), "tok-abcdef")
	assert.Contains(t, buf.String(), "[REDACTED]")
}
