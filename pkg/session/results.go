package session

import "github.com/AnkitM1410/Clawbook-Human/pkg/moltbook"

// LoginResult reports how a stored key was verified. Verified is false
// when the profile probe failed and the key was stored under the name
// "Unknown".
type LoginResult struct {
	AgentName string
	Verified  bool
}

// RegisterResult carries the one-time credential bundle of a freshly
// registered agent. The API key is never shown again after this.
type RegisterResult struct {
	AgentName        string
	APIKey           string
	ClaimURL         string
	VerificationCode string
}

// ProfileResult is a best-effort profile fetch. Available is false
// when there is no active agent or the fetch failed.
type ProfileResult struct {
	Available bool
	Agent     moltbook.Agent
}

// StatusResult is a best-effort status fetch.
type StatusResult struct {
	Available bool
	Status    moltbook.Status
}

// PostsResult is a best-effort fetch of the active agent's recent
// posts.
type PostsResult struct {
	Available bool
	AgentName string
	Posts     []moltbook.Post
}

// SubmoltsResult is a best-effort fetch of the available communities.
type SubmoltsResult struct {
	Available bool
	Submolts  []moltbook.Submolt
}
