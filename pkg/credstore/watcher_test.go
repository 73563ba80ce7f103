package credstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_StartStop(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(EmptyState()))

	watcher, err := NewWatcher(store, 50*time.Millisecond, zerolog.Nop(), nil)
	require.NoError(t, err)

	require.NoError(t, watcher.Start())

	// Give it a moment to start
	time.Sleep(10 * time.Millisecond)

	assert.NoError(t, watcher.Stop())
}

func TestWatcher_ExternalReplaceFiresCallback(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Upsert(AgentRecord{APIKey: "k1", AgentName: "First"})
	require.NoError(t, err)

	changes := make(chan State, 4)
	watcher, err := NewWatcher(store, 50*time.Millisecond, zerolog.Nop(), func(state State) {
		changes <- state
	})
	require.NoError(t, err)

	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	// Give watcher time to initialize
	time.Sleep(100 * time.Millisecond)

	// Replace the file behind the store's back.
	external := `{"active_key": "k9", "agents": [{"api_key": "k9", "agent_name": "Outsider"}]}`
	require.NoError(t, os.WriteFile(store.Path(), []byte(external), 0o600))

	select {
	case state := <-changes:
		require.NotNil(t, state.ActiveKey)
		assert.Equal(t, "k9", *state.ActiveKey)
		require.Len(t, state.Agents, 1)
		assert.Equal(t, "Outsider", state.Agents[0].AgentName)
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for change callback")
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(EmptyState()))

	changes := make(chan State, 4)
	watcher, err := NewWatcher(store, 50*time.Millisecond, zerolog.Nop(), func(state State) {
		changes <- state
	})
	require.NoError(t, err)

	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	// Give watcher time to initialize
	time.Sleep(100 * time.Millisecond)

	sibling := filepath.Join(filepath.Dir(store.Path()), "unrelated.json")
	require.NoError(t, os.WriteFile(sibling, []byte(`{}`), 0o600))

	select {
	case <-changes:
		t.Fatal("Callback fired for an unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_DebouncesRapidWrites(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(EmptyState()))

	changes := make(chan State, 16)
	watcher, err := NewWatcher(store, 100*time.Millisecond, zerolog.Nop(), func(state State) {
		changes <- state
	})
	require.NoError(t, err)

	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	// Give watcher time to initialize
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		doc := `{"active_key": null, "agents": []}`
		require.NoError(t, os.WriteFile(store.Path(), []byte(doc), 0o600))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for debounced callback")
	}

	// Wait a bit more to see whether extra callbacks trail in.
	time.Sleep(250 * time.Millisecond)
	assert.LessOrEqual(t, len(changes), 1)
}
