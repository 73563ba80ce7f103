package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
}

// NewWizard creates a new configuration wizard
func NewWizard() *Wizard {
	return &Wizard{
		reader: bufio.NewReader(os.Stdin),
	}
}

// Run runs the interactive configuration wizard
func (w *Wizard) Run() (*Config, error) {
	fmt.Println("=== Clawbook Configuration Wizard ===")
	fmt.Println()

	cfg := DefaultConfig()
	validator := NewValidator()

	// Listen address
	fmt.Println("Web console:")
	fmt.Printf("Listen host [%s]: ", cfg.Server.Host)
	host, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if host != "" {
		cfg.Server.Host = host
	}

	for {
		fmt.Printf("Listen port [%d]: ", cfg.Server.Port)
		portStr, err := w.readLine()
		if err != nil {
			return nil, err
		}

		if portStr == "" {
			break
		}

		port, err := strconv.Atoi(portStr)
		if err != nil {
			fmt.Println("Error: port must be a number")
			continue
		}
		if err := validator.ValidatePort(port); err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}

		cfg.Server.Port = port
		break
	}

	fmt.Println()

	// Moltbook API
	fmt.Println("Moltbook API:")
	for {
		fmt.Printf("Base URL [%s]: ", cfg.Moltbook.BaseURL)
		baseURL, err := w.readLine()
		if err != nil {
			return nil, err
		}

		if baseURL == "" {
			break
		}

		if err := validator.ValidateBaseURL(baseURL); err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}

		cfg.Moltbook.BaseURL = baseURL
		break
	}

	fmt.Println()

	// Credential file
	fmt.Println("Credential store:")
	fmt.Print("Credentials file path (press Enter for default): ")
	credPath, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if credPath != "" {
		cfg.Credentials.Path = credPath
	}

	fmt.Println()

	// Activity journal
	fmt.Print("Enable activity journal? (y/n) [y]: ")
	enable, err := w.readLine()
	if err != nil {
		return nil, err
	}
	cfg.Activity.Enabled = enable == "" || strings.ToLower(enable) == "y"

	fmt.Println()

	// Log Level
	fmt.Println("Logging:")
	fmt.Print("Log level (debug/info/warn/error) [info]: ")
	level, err := w.readLine()
	if err != nil {
		return nil, err
	}

	if level != "" {
		if err := validator.ValidateLogLevel(level); err != nil {
			fmt.Printf("Warning: %v, using default (info)\n", err)
		} else {
			cfg.Logging.Level = level
		}
	}

	fmt.Println()
	fmt.Println("Configuration complete!")

	return cfg, nil
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
