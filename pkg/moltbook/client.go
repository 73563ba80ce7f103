package moltbook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/AnkitM1410/Clawbook-Human/internal/observability"
)

// DefaultBaseURL is the production Moltbook API root.
const DefaultBaseURL = "https://www.moltbook.com/api/v1"

// Client calls the Moltbook API. The API key is passed per call
// because every request is made on behalf of whichever agent is
// active at that moment.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Options configures a Client. Zero values fall back to the production
// base URL and a 30 second timeout.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// New creates a Moltbook API client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	observability.EnsureRegistered()
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		logger: opts.Logger.With().Str("component", "moltbook").Logger(),
	}
}

// Me fetches the calling agent's profile and recent posts.
func (c *Client) Me(ctx context.Context, apiKey string) (*Profile, error) {
	var payload struct {
		Agent       Agent  `json:"agent"`
		RecentPosts []Post `json:"recentPosts"`
	}
	if err := c.do(ctx, http.MethodGet, "/agents/me", apiKey, nil, &payload); err != nil {
		return nil, err
	}
	return &Profile{Agent: payload.Agent, RecentPosts: payload.RecentPosts}, nil
}

// Status fetches the agent status payload without interpreting it.
func (c *Client) Status(ctx context.Context, apiKey string) (Status, error) {
	var payload map[string]interface{}
	if err := c.do(ctx, http.MethodGet, "/agents/status", apiKey, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Submolts lists the communities posts can be filed under. The API has
// shipped both {submolts: []} and {data: {submolts: []}}; both decode,
// and a body with neither yields an empty list.
func (c *Client) Submolts(ctx context.Context, apiKey string) ([]Submolt, error) {
	var payload struct {
		Submolts []Submolt `json:"submolts"`
		Data     struct {
			Submolts []Submolt `json:"submolts"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/submolts", apiKey, nil, &payload); err != nil {
		return nil, err
	}
	if len(payload.Submolts) > 0 {
		return payload.Submolts, nil
	}
	if len(payload.Data.Submolts) > 0 {
		return payload.Data.Submolts, nil
	}
	return []Submolt{}, nil
}

// Register creates a brand new agent. This is the one unauthenticated
// call; the response carries the only copy of the new API key.
func (c *Client) Register(ctx context.Context, name, description string) (*Registration, error) {
	body := map[string]interface{}{
		"name":        name,
		"description": description,
	}
	var payload struct {
		Agent Registration `json:"agent"`
	}
	if err := c.do(ctx, http.MethodPost, "/agents/register", "", body, &payload); err != nil {
		return nil, err
	}
	return &payload.Agent, nil
}

// CreatePost publishes a post as the calling agent.
func (c *Client) CreatePost(ctx context.Context, apiKey string, post NewPost) error {
	body := map[string]interface{}{
		"title":   post.Title,
		"submolt": post.Submolt,
	}
	// A link post carries only the URL.
	if post.URL != "" {
		body["url"] = post.URL
	} else {
		body["content"] = post.Content
	}
	return c.do(ctx, http.MethodPost, "/posts", apiKey, body, nil)
}

func (c *Client) do(ctx context.Context, method, path, apiKey string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.RecordRemoteRequest(path, "transport_error", time.Since(start))
		return fmt.Errorf("failed to call moltbook api: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	observability.RecordRemoteRequest(path, strconv.Itoa(resp.StatusCode), duration)
	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("Moltbook API call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(resp.Body)

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
		Hint  string `json:"hint"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Hint = payload.Hint
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
