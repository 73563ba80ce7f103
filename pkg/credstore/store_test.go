package credstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	store, err := New(path, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New("  ", zerolog.Nop())
	require.Error(t, err)
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/data", "credentials.json"), DefaultPath("/data"))
}

func TestLoad_MissingFile(t *testing.T) {
	store := newTestStore(t)

	state := store.Load()

	assert.Nil(t, state.ActiveKey)
	assert.Empty(t, state.Agents)
}

func TestLoad_UnparsableFile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("not json{"), 0o600))

	state := store.Load()

	assert.Nil(t, state.ActiveKey)
	assert.Empty(t, state.Agents)
}

func TestLoad_UnknownShape(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte(`{"something": "else"}`), 0o600))

	state := store.Load()

	assert.Nil(t, state.ActiveKey)
	assert.Empty(t, state.Agents)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	key := "moltbook_key_one_0123456789"
	saved := State{
		ActiveKey: &key,
		Agents: []AgentRecord{
			{
				APIKey:           "moltbook_key_one_0123456789",
				AgentName:        "Crabby",
				ClaimURL:         "https://www.moltbook.com/claim/abc",
				VerificationCode: "reef-1234",
			},
			{APIKey: "moltbook_key_two_0123456789", AgentName: "Shelly"},
		},
	}

	require.NoError(t, store.Save(saved))
	loaded := store.Load()

	assert.Equal(t, saved, loaded)
}

func TestSave_LeavesNoTempFile(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(EmptyState()))

	_, err := os.Stat(store.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSave_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "credentials.json")
	store, err := New(path, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, store.Save(EmptyState()))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestUpsert_AppendsAndActivates(t *testing.T) {
	store := newTestStore(t)

	state, err := store.Upsert(AgentRecord{APIKey: "k1", AgentName: "First"})
	require.NoError(t, err)

	require.NotNil(t, state.ActiveKey)
	assert.Equal(t, "k1", *state.ActiveKey)
	require.Len(t, state.Agents, 1)

	state, err = store.Upsert(AgentRecord{APIKey: "k2", AgentName: "Second"})
	require.NoError(t, err)

	assert.Equal(t, "k2", *state.ActiveKey)
	require.Len(t, state.Agents, 2)
	assert.Equal(t, "k1", state.Agents[0].APIKey)
	assert.Equal(t, "k2", state.Agents[1].APIKey)
}

func TestUpsert_ReplacesInPlace(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Upsert(AgentRecord{APIKey: "k1", AgentName: "First"})
	require.NoError(t, err)
	_, err = store.Upsert(AgentRecord{APIKey: "k2", AgentName: "Second"})
	require.NoError(t, err)

	state, err := store.Upsert(AgentRecord{APIKey: "k1", AgentName: "Renamed"})
	require.NoError(t, err)

	// Same key keeps its slot, no duplicate appears, and the agent
	// becomes active again.
	require.Len(t, state.Agents, 2)
	assert.Equal(t, "k1", state.Agents[0].APIKey)
	assert.Equal(t, "Renamed", state.Agents[0].AgentName)
	assert.Equal(t, "k2", state.Agents[1].APIKey)
	assert.Equal(t, "k1", *state.ActiveKey)
}

func TestSwitchActive_KnownKey(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Upsert(AgentRecord{APIKey: "k1", AgentName: "First"})
	require.NoError(t, err)
	_, err = store.Upsert(AgentRecord{APIKey: "k2", AgentName: "Second"})
	require.NoError(t, err)

	state, err := store.SwitchActive("k1")
	require.NoError(t, err)

	assert.Equal(t, "k1", *state.ActiveKey)
	assert.Equal(t, "k1", store.Load().ActiveKeyValue())
}

func TestSwitchActive_UnknownKeyIsNoOp(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Upsert(AgentRecord{APIKey: "k1", AgentName: "First"})
	require.NoError(t, err)

	before, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	state, err := store.SwitchActive("missing")
	require.NoError(t, err)

	assert.Equal(t, "k1", *state.ActiveKey)

	// The file is not rewritten for an unknown key.
	after, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRemove_ActivePromotesFirstRemaining(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Upsert(AgentRecord{APIKey: "k1", AgentName: "First"})
	require.NoError(t, err)
	_, err = store.Upsert(AgentRecord{APIKey: "k2", AgentName: "Second"})
	require.NoError(t, err)
	_, err = store.Upsert(AgentRecord{APIKey: "k3", AgentName: "Third"})
	require.NoError(t, err)

	state, err := store.Remove("k3")
	require.NoError(t, err)

	require.Len(t, state.Agents, 2)
	require.NotNil(t, state.ActiveKey)
	assert.Equal(t, "k1", *state.ActiveKey)
}

func TestRemove_LastAgentClearsActive(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Upsert(AgentRecord{APIKey: "k1", AgentName: "Only"})
	require.NoError(t, err)

	state, err := store.Remove("k1")
	require.NoError(t, err)

	assert.Nil(t, state.ActiveKey)
	assert.Empty(t, state.Agents)
}

func TestRemove_InactiveKeepsActive(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Upsert(AgentRecord{APIKey: "k1", AgentName: "First"})
	require.NoError(t, err)
	_, err = store.Upsert(AgentRecord{APIKey: "k2", AgentName: "Second"})
	require.NoError(t, err)

	state, err := store.Remove("k1")
	require.NoError(t, err)

	require.Len(t, state.Agents, 1)
	assert.Equal(t, "k2", *state.ActiveKey)
}

func TestRemove_AfterSwitchBack(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Upsert(AgentRecord{APIKey: "k1", AgentName: "First"})
	require.NoError(t, err)
	_, err = store.Upsert(AgentRecord{APIKey: "k2", AgentName: "Second"})
	require.NoError(t, err)

	_, err = store.SwitchActive("k1")
	require.NoError(t, err)

	state, err := store.Remove("k1")
	require.NoError(t, err)

	require.Len(t, state.Agents, 1)
	assert.Equal(t, "k2", *state.ActiveKey)
}

func TestClearActive(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Upsert(AgentRecord{APIKey: "k1", AgentName: "First"})
	require.NoError(t, err)

	state, err := store.ClearActive()
	require.NoError(t, err)

	assert.Nil(t, state.ActiveKey)
	require.Len(t, state.Agents, 1)

	// The agent list survives a reload with no active selection.
	loaded := store.Load()
	assert.Nil(t, loaded.ActiveKey)
	assert.Len(t, loaded.Agents, 1)
}

func TestLoad_MigratesLegacyFile(t *testing.T) {
	store := newTestStore(t)
	legacy := `{"api_key": "abc", "agent_name": "X"}`
	require.NoError(t, os.WriteFile(store.Path(), []byte(legacy), 0o600))

	state := store.Load()

	require.NotNil(t, state.ActiveKey)
	assert.Equal(t, "abc", *state.ActiveKey)
	require.Len(t, state.Agents, 1)
	assert.Equal(t, "abc", state.Agents[0].APIKey)
	assert.Equal(t, "X", state.Agents[0].AgentName)

	// The upgraded document replaces the legacy file on disk.
	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	var onDisk map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Contains(t, onDisk, "agents")
	assert.Equal(t, "abc", onDisk["active_key"])
}

func TestLoad_MigrationIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	legacy := `{"api_key": "abc", "agent_name": "X", "claim_url": "https://www.moltbook.com/claim/abc"}`
	require.NoError(t, os.WriteFile(store.Path(), []byte(legacy), 0o600))

	first := store.Load()
	afterFirst, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	second := store.Load()
	afterSecond, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, afterFirst, afterSecond)
	assert.Equal(t, "https://www.moltbook.com/claim/abc", second.Agents[0].ClaimURL)
}

func TestLoad_NullAgentsNormalized(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte(`{"active_key": null, "agents": null}`), 0o600))

	state := store.Load()

	assert.NotNil(t, state.Agents)
	assert.Empty(t, state.Agents)
}
