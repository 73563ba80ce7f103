package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnkitM1410/Clawbook-Human/internal/config"
)

func TestServeCommand(t *testing.T) {
	t.Run("command exists", func(t *testing.T) {
		cmd := GetRootCmd()
		serveCmd := cmd.Commands()

		found := false
		for _, c := range serveCmd {
			if c.Name() == "serve" {
				found = true
				break
			}
		}
		assert.True(t, found, "serve command should exist")
	})

	t.Run("help text", func(t *testing.T) {
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"serve", "--help"})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.NoError(t, err)

		helpText := output.String()
		assert.Contains(t, helpText, "Start the Clawbook web console")
	})

	t.Run("console not running", func(t *testing.T) {
		// Create temp PID file path
		tmpDir := t.TempDir()
		pidFile := filepath.Join(tmpDir, "test.pid")

		// Ensure PID file doesn't exist
		os.Remove(pidFile)

		running := isRunning(pidFile)
		assert.False(t, running)
	})
}

func TestPIDFilePath(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = "/tmp/clawbook-test"

	path := pidFilePath(cfg)
	assert.Equal(t, filepath.Join("/tmp/clawbook-test", "clawbook.pid"), path)
}

func TestReadPID(t *testing.T) {
	t.Run("valid pid file", func(t *testing.T) {
		tmpDir := t.TempDir()
		pidFile := filepath.Join(tmpDir, "valid.pid")

		err := os.WriteFile(pidFile, []byte("12345"), 0644)
		require.NoError(t, err)

		pid, err := readPID(pidFile)
		require.NoError(t, err)
		assert.Equal(t, 12345, pid)
	})

	t.Run("invalid pid file", func(t *testing.T) {
		tmpDir := t.TempDir()
		pidFile := filepath.Join(tmpDir, "invalid.pid")

		err := os.WriteFile(pidFile, []byte("invalid"), 0644)
		require.NoError(t, err)

		_, err = readPID(pidFile)
		assert.Error(t, err)
	})

	t.Run("missing pid file", func(t *testing.T) {
		tmpDir := t.TempDir()
		pidFile := filepath.Join(tmpDir, "nonexistent.pid")

		_, err := readPID(pidFile)
		assert.Error(t, err)
	})
}

func TestIsRunning(t *testing.T) {
	t.Run("no pid file", func(t *testing.T) {
		tmpDir := t.TempDir()
		pidFile := filepath.Join(tmpDir, "nonexistent.pid")

		running := isRunning(pidFile)
		assert.False(t, running)
	})

	t.Run("invalid pid file", func(t *testing.T) {
		tmpDir := t.TempDir()
		pidFile := filepath.Join(tmpDir, "invalid.pid")

		err := os.WriteFile(pidFile, []byte("invalid"), 0644)
		require.NoError(t, err)

		running := isRunning(pidFile)
		assert.False(t, running)
	})

	t.Run("own pid", func(t *testing.T) {
		tmpDir := t.TempDir()
		pidFile := filepath.Join(tmpDir, "own.pid")

		err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644)
		require.NoError(t, err)

		running := isRunning(pidFile)
		assert.True(t, running)
	})
}
