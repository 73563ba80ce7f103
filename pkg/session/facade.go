package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AnkitM1410/Clawbook-Human/internal/observability"
	"github.com/AnkitM1410/Clawbook-Human/internal/tracing"
	"github.com/AnkitM1410/Clawbook-Human/pkg/credstore"
	"github.com/AnkitM1410/Clawbook-Human/pkg/moltbook"
)

const tracerName = "clawbook.session"

// unknownAgentName is stored when a key is saved without a verified
// profile.
const unknownAgentName = "Unknown"

// ErrNoActiveAgent reports that an operation requiring a session ran
// with no active agent selected.
var ErrNoActiveAgent = errors.New("no active agent")

// ErrAgentNotFound reports that the API rejected the key during
// add-agent verification.
var ErrAgentNotFound = errors.New("invalid api key or agent not found")

// Facade exposes the console's operations. It keeps an in-memory
// mirror of the active key so fetches do not hit the disk; the durable
// file stays authoritative and the mirror is refreshed after every
// mutation and by the file watcher.
type Facade struct {
	store  *credstore.Store
	client *moltbook.Client
	logger zerolog.Logger

	mu        sync.RWMutex
	activeKey string
}

// Options configures a Facade.
type Options struct {
	Store  *credstore.Store
	Client *moltbook.Client
	Logger zerolog.Logger
}

// New creates a Facade and primes the active-key mirror from the
// durable file.
func New(opts Options) (*Facade, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("moltbook client is required")
	}

	f := &Facade{
		store:  opts.Store,
		client: opts.Client,
		logger: opts.Logger.With().Str("component", "session").Logger(),
	}
	f.setActiveKey(opts.Store.Load().ActiveKeyValue())
	return f, nil
}

// ActiveKey returns the mirrored active API key, or "" when no agent
// is active.
func (f *Facade) ActiveKey() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.activeKey
}

// State returns the current durable state for rendering the agent
// picker.
func (f *Facade) State() credstore.State {
	return f.store.Load()
}

// RefreshActive updates the mirror from externally loaded state. The
// credential file watcher calls this when the file changes on disk.
func (f *Facade) RefreshActive(state credstore.State) {
	f.setActiveKey(state.ActiveKeyValue())
}

func (f *Facade) setActiveKey(key string) {
	f.mu.Lock()
	f.activeKey = key
	f.mu.Unlock()
}

// Login stores the key and makes it active whether or not the profile
// probe succeeds; an unverifiable key is stored under the name
// "Unknown". Only a failed credential write is an error.
func (f *Facade) Login(ctx context.Context, apiKey string) (LoginResult, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "session.login")
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, f.logger)

	agentName := unknownAgentName
	verified := false
	if profile, err := f.client.Me(ctx, apiKey); err == nil {
		if profile.Agent.Name != "" {
			agentName = profile.Agent.Name
		}
		verified = true
	} else {
		logger.Debug().Err(err).Msg("Profile probe failed, storing key anyway")
	}

	state, err := f.store.Upsert(credstore.AgentRecord{
		APIKey:    apiKey,
		AgentName: agentName,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.RecordSessionAudit(ctx, "login", agentName, "error", nil)
		return LoginResult{}, err
	}
	f.setActiveKey(state.ActiveKeyValue())

	observability.RecordSessionAudit(ctx, "login", agentName, "success", map[string]interface{}{
		"verified": verified,
	})
	logger.Info().Str("agent_name", agentName).Bool("verified", verified).Msg("Logged in")
	return LoginResult{AgentName: agentName, Verified: verified}, nil
}

// AddAgent stores the key only after the API confirms it. A rejected
// key returns ErrAgentNotFound; a transport failure returns the
// underlying error. Neither stores anything.
func (f *Facade) AddAgent(ctx context.Context, apiKey string) (LoginResult, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "session.add_agent")
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, f.logger)

	profile, err := f.client.Me(ctx, apiKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.RecordSessionAudit(ctx, "add_agent", "", "rejected", nil)

		var apiErr *moltbook.APIError
		if errors.As(err, &apiErr) {
			logger.Info().Int("status", apiErr.StatusCode).Msg("Add agent rejected by API")
			return LoginResult{}, ErrAgentNotFound
		}
		logger.Warn().Err(err).Msg("Add agent verification failed")
		return LoginResult{}, err
	}

	agentName := profile.Agent.Name
	if agentName == "" {
		agentName = unknownAgentName
	}

	state, err := f.store.Upsert(credstore.AgentRecord{
		APIKey:    apiKey,
		AgentName: agentName,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return LoginResult{}, err
	}
	f.setActiveKey(state.ActiveKeyValue())

	observability.RecordSessionAudit(ctx, "add_agent", agentName, "success", nil)
	logger.Info().Str("agent_name", agentName).Msg("Agent added")
	return LoginResult{AgentName: agentName, Verified: true}, nil
}

// Register creates a brand new agent, stores its credentials under the
// submitted name and makes it active. The returned bundle is the only
// copy of the new API key.
func (f *Facade) Register(ctx context.Context, name, description string) (RegisterResult, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "session.register",
		attribute.String("agent_name", name),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, f.logger)

	reg, err := f.client.Register(ctx, name, description)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.RecordSessionAudit(ctx, "register", name, "error", nil)
		logger.Warn().Err(err).Str("agent_name", name).Msg("Registration failed")
		return RegisterResult{}, err
	}

	state, err := f.store.Upsert(credstore.AgentRecord{
		APIKey:           reg.APIKey,
		AgentName:        name,
		ClaimURL:         reg.ClaimURL,
		VerificationCode: reg.VerificationCode,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return RegisterResult{}, err
	}
	f.setActiveKey(state.ActiveKeyValue())

	observability.RecordSessionAudit(ctx, "register", name, "success", nil)
	logger.Info().Str("agent_name", name).Msg("Agent registered")
	return RegisterResult{
		AgentName:        name,
		APIKey:           reg.APIKey,
		ClaimURL:         reg.ClaimURL,
		VerificationCode: reg.VerificationCode,
	}, nil
}

// Switch makes a stored agent active. Unknown keys are ignored, like
// the store.
func (f *Facade) Switch(ctx context.Context, apiKey string) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "session.switch")
	defer span.End()

	state, err := f.store.SwitchActive(apiKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	f.setActiveKey(state.ActiveKeyValue())

	actor := unknownAgentName
	if active, ok := state.Active(); ok {
		actor = active.AgentName
	}
	observability.RecordSessionAudit(ctx, "switch", actor, "success", nil)
	return nil
}

// Delete removes a stored agent. When the removed agent was active the
// first remaining agent takes over.
func (f *Facade) Delete(ctx context.Context, apiKey string) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "session.delete")
	defer span.End()

	state, err := f.store.Remove(apiKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	f.setActiveKey(state.ActiveKeyValue())

	observability.RecordSessionAudit(ctx, "delete", "", "success", map[string]interface{}{
		"remaining": len(state.Agents),
	})
	return nil
}

// Logout clears the active selection. Stored agents are kept.
func (f *Facade) Logout(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "session.logout")
	defer span.End()

	state, err := f.store.ClearActive()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	f.setActiveKey(state.ActiveKeyValue())

	observability.RecordSessionAudit(ctx, "logout", "", "success", nil)
	return nil
}

// FetchProfile fetches the active agent's profile, best-effort.
func (f *Facade) FetchProfile(ctx context.Context) ProfileResult {
	ctx, span := tracing.StartSpan(ctx, tracerName, "session.fetch_profile")
	defer span.End()

	key := f.ActiveKey()
	if key == "" {
		return ProfileResult{}
	}

	profile, err := f.client.Me(ctx, key)
	if err != nil {
		span.RecordError(err)
		logger := tracing.LoggerFromContext(ctx, f.logger)
		logger.Debug().Err(err).Msg("Profile fetch failed")
		return ProfileResult{}
	}
	return ProfileResult{Available: true, Agent: profile.Agent}
}

// FetchStatus fetches the status payload, best-effort.
func (f *Facade) FetchStatus(ctx context.Context) StatusResult {
	ctx, span := tracing.StartSpan(ctx, tracerName, "session.fetch_status")
	defer span.End()

	key := f.ActiveKey()
	if key == "" {
		return StatusResult{}
	}

	status, err := f.client.Status(ctx, key)
	if err != nil {
		span.RecordError(err)
		logger := tracing.LoggerFromContext(ctx, f.logger)
		logger.Debug().Err(err).Msg("Status fetch failed")
		return StatusResult{}
	}
	return StatusResult{Available: true, Status: status}
}

// FetchRecentPosts fetches the active agent's recent posts,
// best-effort.
func (f *Facade) FetchRecentPosts(ctx context.Context) PostsResult {
	ctx, span := tracing.StartSpan(ctx, tracerName, "session.fetch_recent_posts")
	defer span.End()

	key := f.ActiveKey()
	if key == "" {
		return PostsResult{}
	}

	profile, err := f.client.Me(ctx, key)
	if err != nil {
		span.RecordError(err)
		logger := tracing.LoggerFromContext(ctx, f.logger)
		logger.Debug().Err(err).Msg("Recent posts fetch failed")
		return PostsResult{}
	}

	name := profile.Agent.Name
	if name == "" {
		name = unknownAgentName
	}
	posts := profile.RecentPosts
	if posts == nil {
		posts = []moltbook.Post{}
	}
	return PostsResult{Available: true, AgentName: name, Posts: posts}
}

// FetchSubmolts fetches the communities for the post composer,
// best-effort.
func (f *Facade) FetchSubmolts(ctx context.Context) SubmoltsResult {
	ctx, span := tracing.StartSpan(ctx, tracerName, "session.fetch_submolts")
	defer span.End()

	key := f.ActiveKey()
	if key == "" {
		return SubmoltsResult{}
	}

	submolts, err := f.client.Submolts(ctx, key)
	if err != nil {
		span.RecordError(err)
		logger := tracing.LoggerFromContext(ctx, f.logger)
		logger.Debug().Err(err).Msg("Submolts fetch failed")
		return SubmoltsResult{}
	}
	return SubmoltsResult{Available: true, Submolts: submolts}
}

// CreatePost publishes a post as the active agent. With no active
// agent it returns ErrNoActiveAgent without calling the API.
func (f *Facade) CreatePost(ctx context.Context, post moltbook.NewPost) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "session.create_post",
		attribute.String("submolt", post.Submolt),
		attribute.Bool("has_url", post.URL != ""),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, f.logger)

	key := f.ActiveKey()
	if key == "" {
		return ErrNoActiveAgent
	}

	actor := unknownAgentName
	if active, ok := f.State().Active(); ok {
		actor = active.AgentName
	}

	if err := f.client.CreatePost(ctx, key, post); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.RecordPostAudit(ctx, actor, "error", map[string]interface{}{
			"submolt": post.Submolt,
		})
		logger.Warn().Err(err).Str("submolt", post.Submolt).Msg("Post creation failed")
		return err
	}

	observability.RecordPostAudit(ctx, actor, "success", map[string]interface{}{
		"submolt": post.Submolt,
		"has_url": post.URL != "",
	})
	logger.Info().Str("submolt", post.Submolt).Msg("Post created")
	return nil
}
