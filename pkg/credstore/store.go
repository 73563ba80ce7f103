package credstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/AnkitM1410/Clawbook-Human/internal/observability"
)

// Store owns the credential file on disk. All mutations load the
// current document, apply the change and persist the result under a
// single lock, so the file is the only source of truth.
type Store struct {
	mu      sync.Mutex
	path    string
	logger  zerolog.Logger
	decoder *documentDecoder
}

// New creates a store backed by the credential file at path. The file
// does not need to exist yet.
func New(path string, logger zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("credential file path is required")
	}
	observability.EnsureRegistered()
	return &Store{
		path:    path,
		logger:  logger.With().Str("component", "credstore").Logger(),
		decoder: newDocumentDecoder(),
	}, nil
}

// Path returns the credential file location.
func (s *Store) Path() string {
	return s.path
}

// DefaultPath returns the conventional credential file location under
// the given data directory.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, "credentials.json")
}

// Load reads the credential file. A missing, unreadable or unparsable
// file yields an empty state rather than an error, so callers always
// have something to work with. Legacy single-agent files are migrated
// and persisted in place on first read.
func (s *Store) Load() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	state := s.loadLocked()
	observability.RecordStoreOp("load", time.Since(start), true)
	observability.SetSessionState(len(state.Agents), state.ActiveKey != nil)
	return state
}

// Save persists the given state, replacing whatever is on disk.
func (s *Store) Save(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	err := s.saveLocked(state)
	observability.RecordStoreOp("save", time.Since(start), err == nil)
	return err
}

// Upsert stores the record and makes it the active agent. A record
// with the same API key is replaced in place, keeping its position in
// the list; otherwise the record is appended.
func (s *Store) Upsert(record AgentRecord) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	state, err := s.upsertLocked(record)
	observability.RecordStoreOp("upsert", time.Since(start), err == nil)
	if err != nil {
		return State{}, err
	}
	s.logger.Info().
		Str("agent_name", record.AgentName).
		Int("agents", len(state.Agents)).
		Msg("Stored agent credentials")
	return state, nil
}

func (s *Store) upsertLocked(record AgentRecord) (State, error) {
	state := s.loadLocked()

	replaced := false
	for i := range state.Agents {
		if state.Agents[i].APIKey == record.APIKey {
			state.Agents[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		state.Agents = append(state.Agents, record)
	}

	key := record.APIKey
	state.ActiveKey = &key

	if err := s.saveLocked(state); err != nil {
		return State{}, err
	}
	return state, nil
}

// SwitchActive makes the agent with the given key active. A key that
// is not stored leaves the file untouched and returns the current
// state unchanged.
func (s *Store) SwitchActive(key string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	state, changed, err := s.switchActiveLocked(key)
	observability.RecordStoreOp("switch_active", time.Since(start), err == nil)
	if err != nil {
		return State{}, err
	}
	if changed {
		s.logger.Info().Msg("Switched active agent")
	} else {
		s.logger.Debug().Msg("Ignored switch to unknown agent key")
	}
	return state, nil
}

func (s *Store) switchActiveLocked(key string) (State, bool, error) {
	state := s.loadLocked()
	if !state.Has(key) {
		return state, false, nil
	}

	state.ActiveKey = &key
	if err := s.saveLocked(state); err != nil {
		return State{}, false, err
	}
	return state, true, nil
}

// Remove deletes the record with the given key. When the removed agent
// was active, the first remaining agent becomes active; with no agents
// left the active key is cleared. Removing an unknown key still
// rewrites the file with the unchanged list.
func (s *Store) Remove(key string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	state, err := s.removeLocked(key)
	observability.RecordStoreOp("remove", time.Since(start), err == nil)
	if err != nil {
		return State{}, err
	}
	s.logger.Info().
		Int("agents", len(state.Agents)).
		Msg("Removed agent credentials")
	return state, nil
}

func (s *Store) removeLocked(key string) (State, error) {
	state := s.loadLocked()

	filtered := make([]AgentRecord, 0, len(state.Agents))
	for _, agent := range state.Agents {
		if agent.APIKey == key {
			continue
		}
		filtered = append(filtered, agent)
	}
	state.Agents = filtered

	if state.ActiveKey != nil && *state.ActiveKey == key {
		if len(filtered) > 0 {
			next := filtered[0].APIKey
			state.ActiveKey = &next
		} else {
			state.ActiveKey = nil
		}
	}

	if err := s.saveLocked(state); err != nil {
		return State{}, err
	}
	return state, nil
}

// ClearActive drops the active selection while keeping every stored
// agent.
func (s *Store) ClearActive() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	state := s.loadLocked()
	state.ActiveKey = nil
	err := s.saveLocked(state)
	observability.RecordStoreOp("clear_active", time.Since(start), err == nil)
	if err != nil {
		return State{}, err
	}
	s.logger.Info().Msg("Cleared active agent")
	return state, nil
}

func (s *Store) loadLocked() State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("Failed to read credential file")
		}
		return EmptyState()
	}

	state, shape, err := s.decoder.decode(data)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("Failed to decode credential file")
		return EmptyState()
	}

	switch shape {
	case shapeCurrent:
		return state
	case shapeLegacy:
		// Persist the upgraded document immediately so the migration
		// happens exactly once.
		if err := s.saveLocked(state); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to persist migrated credential file")
			return EmptyState()
		}
		s.logger.Info().Msg("Migrated legacy credential file to multi-agent format")
		return state
	default:
		s.logger.Warn().Str("path", s.path).Msg("Credential file has unknown format, starting empty")
		return EmptyState()
	}
}

func (s *Store) saveLocked(state State) error {
	if state.Agents == nil {
		state.Agents = []AgentRecord{}
	}
	if err := writeJSONFile(s.path, state); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	observability.SetSessionState(len(state.Agents), state.ActiveKey != nil)
	return nil
}

func writeJSONFile(path string, payload interface{}) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
