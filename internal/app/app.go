package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/AnkitM1410/Clawbook-Human/internal/activity"
	"github.com/AnkitM1410/Clawbook-Human/internal/config"
	"github.com/AnkitM1410/Clawbook-Human/internal/logger"
	"github.com/AnkitM1410/Clawbook-Human/internal/observability"
	"github.com/AnkitM1410/Clawbook-Human/internal/tracing"
	"github.com/AnkitM1410/Clawbook-Human/internal/web"
	"github.com/AnkitM1410/Clawbook-Human/pkg/credstore"
	"github.com/AnkitM1410/Clawbook-Human/pkg/moltbook"
	"github.com/AnkitM1410/Clawbook-Human/pkg/session"
)

// App wires the console together: the credential store, the Moltbook
// client, the session facade, the activity journal and the web server.
type App struct {
	config *config.Config
	logger *logger.Logger

	store     *credstore.Store
	client    *moltbook.Client
	facade    *session.Facade
	journal   *activity.Journal
	webServer *web.Server
	watcher   *credstore.Watcher
	lifecycle *LifecycleManager

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time
	running   bool
	mu        sync.RWMutex

	tracingEnabled bool
}

// Status describes the running console.
type Status struct {
	Running   bool
	Uptime    time.Duration
	StartTime time.Time
}

// New creates a console app instance
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	observability.EnsureRegistered()
	if err := tracing.InitOpenTelemetry("clawbook-console"); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without distributed tracing")
	} else {
		log.Info().Msg("Tracing initialized successfully")
	}

	a := &App{
		config:         cfg,
		logger:         log,
		ctx:            ctx,
		cancel:         cancel,
		tracingEnabled: true,
	}

	if err := a.initializeComponents(); err != nil {
		cancel()
		if a.tracingEnabled {
			_ = tracing.ShutdownOpenTelemetry(context.Background())
			a.tracingEnabled = false
		}
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	a.lifecycle = NewLifecycleManager(a)

	return a, nil
}

// initializeComponents initializes all components in dependency order
func (a *App) initializeComponents() error {
	if err := os.MkdirAll(a.config.DataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	auditPath := filepath.Join(a.config.DataDir, "audit.log")
	if err := observability.InitAuditLogger(auditPath); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to initialize audit logger, using default stderr")
	} else {
		a.logger.Info().Str("path", auditPath).Msg("Audit logger initialized")
	}

	store, err := credstore.New(a.config.Credentials.Path, a.logger.GetZerolog())
	if err != nil {
		return fmt.Errorf("failed to create credential store: %w", err)
	}
	a.store = store
	a.logger.Info().Str("path", a.config.Credentials.Path).Msg("Credential store initialized")

	a.client = moltbook.New(moltbook.Options{
		BaseURL: a.config.Moltbook.BaseURL,
		Timeout: time.Duration(a.config.Moltbook.TimeoutSeconds) * time.Second,
		Logger:  a.logger.GetZerolog(),
	})
	a.logger.Info().Str("base_url", a.config.Moltbook.BaseURL).Msg("Moltbook client initialized")

	facade, err := session.New(session.Options{
		Store:  a.store,
		Client: a.client,
		Logger: a.logger.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create session facade: %w", err)
	}
	a.facade = facade
	a.logger.Info().Msg("Session facade initialized")

	if a.config.Activity.Enabled {
		journal, err := activity.Open(a.config.Activity.Path, a.logger.GetZerolog())
		if err != nil {
			a.logger.Warn().Err(err).Msg("Failed to open activity journal, continuing without it")
		} else {
			a.journal = journal
			a.logger.Info().Str("path", a.config.Activity.Path).Msg("Activity journal initialized")
		}
	}

	webServer, err := web.NewServer(web.Options{
		Host:    a.config.Server.Host,
		Port:    a.config.Server.Port,
		Facade:  a.facade,
		Journal: a.journal,
		Logger:  a.logger.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create console server: %w", err)
	}
	a.webServer = webServer
	a.logger.Info().Msg("Console server initialized")

	watcher, err := credstore.NewWatcher(a.store, 0, a.logger.GetZerolog(), a.onCredentialsChanged)
	if err != nil {
		return fmt.Errorf("failed to create credential watcher: %w", err)
	}
	a.watcher = watcher
	a.logger.Info().Msg("Credential watcher initialized")

	return nil
}

// onCredentialsChanged reacts to external edits of the credential file.
// The facade mirror follows the file and open browser tabs are told.
func (a *App) onCredentialsChanged(state credstore.State) {
	a.facade.RefreshActive(state)
	a.webServer.Hub().Broadcast("credentials.changed", map[string]interface{}{
		"saved_agents": len(state.Agents),
		"has_session":  state.ActiveKeyValue() != "",
	})
}

// Start starts the console
func (a *App) Start() error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("console is already running")
	}
	a.running = true
	a.startTime = time.Now()
	a.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := a.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	logger.Info().Msg("Starting Clawbook console")

	// Start lifecycle manager
	if err := a.lifecycle.Start(); err != nil {
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	// The watcher needs the credential directory to exist before it can
	// subscribe.
	if err := os.MkdirAll(filepath.Dir(a.store.Path()), 0o700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}
	if err := a.watcher.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start credential watcher")
	} else {
		logger.Info().Msg("Credential watcher started")
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.webServer.Start(); err != nil {
			logger.Error().Err(err).Msg("Console server error")
		}
	}()

	logger.Info().
		Str("url", "http://"+a.webServer.Addr()).
		Msg("Console started successfully")

	return nil
}

// Stop stops the console gracefully
func (a *App) Stop() error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return fmt.Errorf("console is not running")
	}
	a.running = false
	a.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := a.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	logger.Info().Msg("Stopping Clawbook console")

	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop credential watcher")
		}
	}

	if a.webServer != nil {
		if err := a.webServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop console server")
		}
	}

	a.cancel()

	// Wait for goroutines to finish (with timeout)
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("All goroutines stopped")
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("Timeout waiting for goroutines to stop")
	}

	// Stop lifecycle manager
	if err := a.lifecycle.Stop(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close activity journal")
		}
	}

	if a.tracingEnabled {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := tracing.ShutdownOpenTelemetry(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown tracing")
		}
		cancel()
		a.tracingEnabled = false
	}

	if err := observability.GetAuditLogger().Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close audit logger")
	}

	logger.Info().Msg("Console stopped successfully")

	return nil
}

// Status returns the console status
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	status := Status{
		Running: a.running,
	}

	if a.running {
		status.Uptime = time.Since(a.startTime)
		status.StartTime = a.startTime
	}

	return status
}

// Wait blocks until the console is told to stop
func (a *App) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	a.logger.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := a.Stop(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to stop console")
	}
}

// GetConfig returns the console configuration
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetFacade returns the session facade
func (a *App) GetFacade() *session.Facade {
	return a.facade
}

// GetStore returns the credential store
func (a *App) GetStore() *credstore.Store {
	return a.store
}

// GetWebServer returns the console web server
func (a *App) GetWebServer() *web.Server {
	return a.webServer
}
