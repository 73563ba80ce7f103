package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/AnkitM1410/Clawbook-Human/internal/config"
	"github.com/AnkitM1410/Clawbook-Human/pkg/credstore"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show console status",
	Long:  `Show the current status of the Clawbook web console.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// healthReport mirrors the console /healthz response
type healthReport struct {
	Status      string  `json:"status"`
	Uptime      float64 `json:"uptime"`
	SavedAgents int     `json:"savedAgents"`
	HasSession  bool    `json:"hasSession"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	fmt.Printf("Config: %s\n", config.NewLoader(cfgFile).GetConfigPath())
	fmt.Printf("Credentials: %s\n", cfg.Credentials.Path)

	if store, err := credstore.New(cfg.Credentials.Path, zerolog.Nop()); err == nil {
		state := store.Load()
		fmt.Printf("Saved agents: %d\n", len(state.Agents))
		if active, ok := state.Active(); ok {
			fmt.Printf("Active agent: %s\n", active.AgentName)
		} else {
			fmt.Println("Active agent: none")
		}
	}

	pidFile := pidFilePath(cfg)
	if !isRunning(pidFile) {
		fmt.Println("Status: stopped")
		return nil
	}

	pid, err := readPID(pidFile)
	if err != nil {
		return fmt.Errorf("failed to read PID file: %w", err)
	}

	fmt.Println("Status: running")
	fmt.Printf("PID: %d\n", pid)

	// PID file modification time doubles as the start time
	if fileInfo, err := os.Stat(pidFile); err == nil {
		fmt.Printf("Uptime: %s\n", formatDuration(time.Since(fileInfo.ModTime())))
	}

	report, err := fetchHealth(cfg.Server.Addr())
	if err != nil {
		fmt.Printf("Console not answering on http://%s\n", cfg.Server.Addr())
		return nil
	}

	fmt.Printf("URL: http://%s\n", cfg.Server.Addr())
	if report.HasSession {
		fmt.Println("Session: active")
	} else {
		fmt.Println("Session: none")
	}

	return nil
}

func fetchHealth(addr string) (*healthReport, error) {
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get("http://" + addr + "/healthz")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var report healthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, err
	}

	return &report, nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
