package web

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/AnkitM1410/Clawbook-Human/internal/activity"
	"github.com/AnkitM1410/Clawbook-Human/internal/observability"
	"github.com/AnkitM1410/Clawbook-Human/pkg/session"
)

// Options configures the console server.
type Options struct {
	Host    string
	Port    int
	Facade  *session.Facade
	Journal *activity.Journal
	Logger  zerolog.Logger
}

// Server is the console HTTP server. It binds loopback by default;
// the console holds API keys and is not meant to be exposed.
type Server struct {
	options   Options
	facade    *session.Facade
	journal   *activity.Journal
	hub       *EventHub
	renderer  *renderer
	server    *http.Server
	logger    zerolog.Logger
	startTime time.Time

	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// NewServer creates the console server. A nil journal disables
// activity recording.
func NewServer(options Options) (*Server, error) {
	if options.Facade == nil {
		return nil, fmt.Errorf("session facade is required")
	}
	if options.Host == "" {
		options.Host = "127.0.0.1"
	}
	if options.Port == 0 {
		options.Port = 8000
	}

	logger := options.Logger.With().Str("component", "web").Logger()
	renderer, err := newRenderer(logger)
	if err != nil {
		return nil, err
	}

	observability.EnsureRegistered()

	return &Server{
		options:   options,
		facade:    options.Facade,
		journal:   options.Journal,
		hub:       NewEventHub(options.Logger),
		renderer:  renderer,
		logger:    logger,
		startTime: time.Now(),
	}, nil
}

// Hub returns the event hub so other components can broadcast console
// events.
func (s *Server) Hub() *EventHub {
	return s.hub
}

// Addr returns the address the server binds.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.options.Host, s.options.Port)
}

// Start starts the console server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.Addr(),
		Handler: s.withMiddleware(s.routes()),
	}

	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Msg("Starting console server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start console server: %w", err)
	}

	return nil
}

// Stop gracefully stops the console server
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down console server")

	// Wait for in-flight requests with timeout
	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	s.hub.CloseAll()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown console server: %w", err)
		}
	}

	s.logger.Info().Msg("Console server stopped")
	return nil
}
