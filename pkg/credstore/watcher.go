package credstore

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ChangeCallback receives the freshly loaded state after the
// credential file changed on disk.
type ChangeCallback func(state State)

// Watcher monitors the credential file for external edits and reloads
// it when it changes. The parent directory is watched rather than the
// file itself because saves replace the file via rename.
type Watcher struct {
	watcher        *fsnotify.Watcher
	store          *Store
	path           string
	logger         zerolog.Logger
	onChange       ChangeCallback
	debounce       time.Duration
	done           chan struct{}
	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex
	stopOnce       sync.Once
}

// NewWatcher creates a watcher for the store's credential file. A zero
// debounce falls back to 100ms.
func NewWatcher(store *Store, debounce time.Duration, logger zerolog.Logger, onChange ChangeCallback) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if debounce == 0 {
		debounce = 100 * time.Millisecond
	}

	return &Watcher{
		watcher:        watcher,
		store:          store,
		path:           filepath.Clean(store.Path()),
		logger:         logger.With().Str("component", "credstore_watcher").Logger(),
		onChange:       onChange,
		debounce:       debounce,
		done:           make(chan struct{}),
		debounceTimers: make(map[string]*time.Timer),
	}, nil
}

// Start begins watching the credential file's directory.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go w.eventLoop()

	w.logger.Info().
		Str("path", w.path).
		Msg("Credential file watcher started")
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
	})

	w.debounceMu.Lock()
	for _, timer := range w.debounceTimers {
		timer.Stop()
	}
	clear(w.debounceTimers)
	w.debounceMu.Unlock()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.logger.Info().Msg("Credential file watcher stopped")
	return nil
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// The directory watch reports every sibling, including the .tmp
	// file used during saves.
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	w.debounceEvent(event)
}

func (w *Watcher) debounceEvent(event fsnotify.Event) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, exists := w.debounceTimers[event.Name]; exists {
		timer.Stop()
	}

	eventCopy := event

	w.debounceTimers[event.Name] = time.AfterFunc(w.debounce, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, eventCopy.Name)
		w.debounceMu.Unlock()

		select {
		case <-w.done:
			return
		default:
			w.processChange()
		}
	})
}

func (w *Watcher) processChange() {
	state := w.store.Load()
	w.logger.Debug().
		Int("agents", len(state.Agents)).
		Msg("Credential file changed on disk")
	if w.onChange != nil {
		w.onChange(state)
	}
}
