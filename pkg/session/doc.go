// Package session exposes the console's user-facing operations on top
// of the credential store and the Moltbook API client.
//
// Invariants:
// - The durable credential file is the source of truth; the in-memory
//   active key is a mirror that is refreshed after every mutation and
//   by the file watcher.
// - Fetch operations are best-effort: they report unavailable data
//   instead of failing the caller.
// - Post creation requires an active agent.
//
// Usage:
//
//	facade, _ := session.New(session.Options{Store: store, Client: client})
//	result, _ := facade.Login(ctx, apiKey)
//	profile := facade.FetchProfile(ctx)
//	_ = result
//	_ = profile
package session
