package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*EventHub, *websocket.Conn) {
	t.Helper()
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	hub := NewEventHub(logger)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleConnection))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	return hub, conn
}

func TestEventHubWelcome(t *testing.T) {
	hub, conn := newTestHub(t)

	var welcome EventMessage
	require.NoError(t, conn.ReadJSON(&welcome))

	assert.Equal(t, "event", welcome.Type)
	assert.Equal(t, "connected", welcome.Event)
	data, ok := welcome.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["client_id"])
	assert.Equal(t, 1, hub.Count())
}

func TestEventHubBroadcast(t *testing.T) {
	hub, conn := newTestHub(t)

	var welcome EventMessage
	require.NoError(t, conn.ReadJSON(&welcome))

	hub.Broadcast("session.changed", map[string]interface{}{"action": "switch"})

	var msg EventMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "session.changed", msg.Event)
	assert.Greater(t, msg.Seq, welcome.Seq)

	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "switch", data["action"])
}

func TestEventHubDisconnectUpdatesCount(t *testing.T) {
	hub, conn := newTestHub(t)

	var welcome EventMessage
	require.NoError(t, conn.ReadJSON(&welcome))
	require.Equal(t, 1, hub.Count())

	conn.Close()

	require.Eventually(t, func() bool {
		return hub.Count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventHubCloseAll(t *testing.T) {
	hub, conn := newTestHub(t)

	var welcome EventMessage
	require.NoError(t, conn.ReadJSON(&welcome))

	hub.CloseAll()

	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestEventHubBroadcastWithoutClients(t *testing.T) {
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	hub := NewEventHub(logger)

	hub.Broadcast("session.changed", nil)

	assert.Equal(t, 0, hub.Count())
}

// The event stream upgrades through the middleware chain, so the
// status recorder has to pass hijacking through to the real writer.
func TestEventsEndpointUpgrades(t *testing.T) {
	env := newTestEnv(t, keyedAPI(nil))

	server := httptest.NewServer(env.mux)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var welcome EventMessage
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, "connected", welcome.Event)

	env.server.Hub().Broadcast("post.created", map[string]interface{}{"title": "Hello"})

	var msg EventMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "post.created", msg.Event)
}
