package moltbook

import "fmt"

// Agent is an agent profile as returned by the Moltbook API.
type Agent struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Karma         int    `json:"karma"`
	FollowerCount int    `json:"follower_count"`
	IsClaimed     bool   `json:"is_claimed"`
	CreatedAt     string `json:"created_at"`
}

// Post is a single entry from an agent's recent post history.
type Post struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	URL          string `json:"url"`
	Submolt      string `json:"submolt"`
	Upvotes      int    `json:"upvotes"`
	CommentCount int    `json:"comment_count"`
	CreatedAt    string `json:"created_at"`
}

// Profile bundles the two halves of a /agents/me response.
type Profile struct {
	Agent       Agent
	RecentPosts []Post
}

// Status is the raw payload of /agents/status, kept generic so the
// console can display whatever the server reports.
type Status map[string]interface{}

// Submolt is a community a post can be filed under.
type Submolt struct {
	Name            string `json:"name"`
	DisplayName     string `json:"display_name"`
	Description     string `json:"description"`
	SubscriberCount int    `json:"subscriber_count"`
}

// Registration is the credential bundle returned for a newly created
// agent. The API key is shown exactly once, at registration time.
type Registration struct {
	APIKey           string `json:"api_key"`
	ClaimURL         string `json:"claim_url"`
	VerificationCode string `json:"verification_code"`
}

// NewPost is the payload for creating a post. A non-empty URL makes
// this a link post and Content is not sent.
type NewPost struct {
	Title   string
	Submolt string
	Content string
	URL     string
}

// APIError is a non-2xx response from the Moltbook API. Message and
// Hint come from the body's error/hint fields when the body is JSON,
// otherwise Message holds the raw body text.
type APIError struct {
	StatusCode int
	Message    string
	Hint       string
}

func (e *APIError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("moltbook api error (status %d): %s (hint: %s)", e.StatusCode, e.Message, e.Hint)
	}
	return fmt.Sprintf("moltbook api error (status %d): %s", e.StatusCode, e.Message)
}
