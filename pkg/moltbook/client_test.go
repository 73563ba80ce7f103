package moltbook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Options{BaseURL: server.URL, Logger: zerolog.Nop()})
}

func TestNew_Defaults(t *testing.T) {
	client := New(Options{Logger: zerolog.Nop()})
	assert.Equal(t, DefaultBaseURL, client.baseURL)

	trimmed := New(Options{BaseURL: "https://example.com/api/v1/", Logger: zerolog.Nop()})
	assert.Equal(t, "https://example.com/api/v1", trimmed.baseURL)
}

func TestClient_Me(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agents/me", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"agent": {"name": "Crabby", "karma": 12, "follower_count": 3, "is_claimed": true},
			"recentPosts": [{"title": "First", "submolt": "shells", "upvotes": 7}]
		}`))
	})

	profile, err := client.Me(context.Background(), "test-key")
	require.NoError(t, err)

	assert.Equal(t, "Crabby", profile.Agent.Name)
	assert.Equal(t, 12, profile.Agent.Karma)
	assert.True(t, profile.Agent.IsClaimed)
	require.Len(t, profile.RecentPosts, 1)
	assert.Equal(t, "First", profile.RecentPosts[0].Title)
	assert.Equal(t, 7, profile.RecentPosts[0].Upvotes)
}

func TestClient_Me_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "Invalid API key"}`))
	})

	_, err := client.Me(context.Background(), "bad-key")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid API key", apiErr.Message)
	assert.Empty(t, apiErr.Hint)
}

func TestClient_Status(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agents/status", r.URL.Path)
		_, _ = w.Write([]byte(`{"state": "molting", "uptime_hours": 36}`))
	})

	status, err := client.Status(context.Background(), "test-key")
	require.NoError(t, err)

	assert.Equal(t, "molting", status["state"])
	assert.Equal(t, float64(36), status["uptime_hours"])
}

func TestClient_Submolts_FlatShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/submolts", r.URL.Path)
		_, _ = w.Write([]byte(`{"submolts": [{"name": "shells", "description": "All about shells"}]}`))
	})

	submolts, err := client.Submolts(context.Background(), "test-key")
	require.NoError(t, err)

	require.Len(t, submolts, 1)
	assert.Equal(t, "shells", submolts[0].Name)
}

func TestClient_Submolts_NestedShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"submolts": [{"name": "tidepools"}, {"name": "driftwood"}]}}`))
	})

	submolts, err := client.Submolts(context.Background(), "test-key")
	require.NoError(t, err)

	require.Len(t, submolts, 2)
	assert.Equal(t, "tidepools", submolts[0].Name)
}

func TestClient_Submolts_MissingBothShapes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unrelated": true}`))
	})

	submolts, err := client.Submolts(context.Background(), "test-key")
	require.NoError(t, err)

	assert.NotNil(t, submolts)
	assert.Empty(t, submolts)
}

func TestClient_Register(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agents/register", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		// Registration happens before any key exists.
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Crabby", body["name"])
		assert.Equal(t, "A helpful crab", body["description"])

		_, _ = w.Write([]byte(`{"agent": {"api_key": "moltbook_new_key", "claim_url": "https://www.moltbook.com/claim/x", "verification_code": "reef-9"}}`))
	})

	reg, err := client.Register(context.Background(), "Crabby", "A helpful crab")
	require.NoError(t, err)

	assert.Equal(t, "moltbook_new_key", reg.APIKey)
	assert.Equal(t, "https://www.moltbook.com/claim/x", reg.ClaimURL)
	assert.Equal(t, "reef-9", reg.VerificationCode)
}

func TestClient_Register_ErrorWithHint(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "Name already taken", "hint": "Try a different name"}`))
	})

	_, err := client.Register(context.Background(), "Crabby", "")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Name already taken", apiErr.Message)
	assert.Equal(t, "Try a different name", apiErr.Hint)
}

func TestClient_CreatePost_Content(t *testing.T) {
	var body map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/posts", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
	})

	err := client.CreatePost(context.Background(), "test-key", NewPost{
		Title:   "Molting tips",
		Submolt: "shells",
		Content: "Hide until it hardens.",
	})
	require.NoError(t, err)

	assert.Equal(t, "Molting tips", body["title"])
	assert.Equal(t, "shells", body["submolt"])
	assert.Equal(t, "Hide until it hardens.", body["content"])
	assert.NotContains(t, body, "url")
}

func TestClient_CreatePost_URLSuppressesContent(t *testing.T) {
	var body map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
	})

	err := client.CreatePost(context.Background(), "test-key", NewPost{
		Title:   "A link",
		Submolt: "driftwood",
		Content: "this text is dropped",
		URL:     "https://example.com/article",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/article", body["url"])
	assert.NotContains(t, body, "content")
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	_, err := client.Status(context.Background(), "test-key")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := New(Options{BaseURL: server.URL, Logger: zerolog.Nop()})
	server.Close()

	_, err := client.Me(context.Background(), "test-key")
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
