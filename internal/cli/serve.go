package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AnkitM1410/Clawbook-Human/internal/app"
	"github.com/AnkitM1410/Clawbook-Human/internal/config"
	"github.com/AnkitM1410/Clawbook-Human/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Clawbook web console",
	Long: `Start the Clawbook web console in the foreground.
The console serves the agent dashboard on the configured address until
it is interrupted or stopped with "clawbook stop".`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Refuse to start a second console on the same data directory
	pidFile := pidFilePath(cfg)
	if isRunning(pidFile) {
		return fmt.Errorf("console is already running (PID file: %s)", pidFile)
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	console, err := app.New(cfg, log)
	if err != nil {
		return err
	}

	if err := console.Start(); err != nil {
		return err
	}

	fmt.Printf("Clawbook console listening on http://%s\n", cfg.Server.Addr())
	fmt.Println("Press Ctrl+C to stop")

	console.Wait()
	return nil
}

func pidFilePath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "clawbook.pid")
}

func readPID(pidFile string) (int, error) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, err
	}

	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, fmt.Errorf("invalid PID file: %w", err)
	}

	return pid, nil
}

func isRunning(pidFile string) bool {
	if _, err := os.Stat(pidFile); os.IsNotExist(err) {
		return false
	}

	pid, err := readPID(pidFile)
	if err != nil {
		return false
	}

	// Check if process exists
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix, FindProcess always succeeds, so we need to send signal 0
	err = process.Signal(syscall.Signal(0))
	return err == nil
}
