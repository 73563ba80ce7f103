package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AnkitM1410/Clawbook-Human/internal/activity"
	"github.com/AnkitM1410/Clawbook-Human/pkg/credstore"
	"github.com/AnkitM1410/Clawbook-Human/pkg/moltbook"
	"github.com/AnkitM1410/Clawbook-Human/pkg/session"
)

// pageBase carries the fields the shared layout needs on every page.
type pageBase struct {
	Title      string
	HasSession bool
}

type dashboardPage struct {
	pageBase
	Agent       *moltbook.Agent
	Status      moltbook.Status
	APIKey      string
	SavedAgents []credstore.AgentRecord
	ActiveKey   string
	Error       string
}

type loginPage struct {
	pageBase
}

type registerPage struct {
	pageBase
	Error string
}

type registerSuccessPage struct {
	pageBase
	Result session.RegisterResult
}

type postPage struct {
	pageBase
	Submolts []moltbook.Submolt
	Success  string
	Error    string
}

type myPostsPage struct {
	pageBase
	AgentName string
	Posts     []moltbook.Post
}

type activityPage struct {
	pageBase
	Entries []activity.Entry
}

func (s *Server) base(title string) pageBase {
	return pageBase{
		Title:      title,
		HasSession: s.facade.ActiveKey() != "",
	}
}

// activeAgentName resolves the active agent's stored name for the
// journal without a remote call.
func (s *Server) activeAgentName() string {
	if active, ok := s.facade.State().Active(); ok {
		return active.AgentName
	}
	return ""
}

// renderDashboard renders the dashboard, optionally with an error
// banner. Profile and status fetches are best-effort; the saved agent
// list always renders.
func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, errMsg string) {
	ctx := r.Context()
	state := s.facade.State()

	page := dashboardPage{
		pageBase:    s.base("Dashboard"),
		APIKey:      state.ActiveKeyValue(),
		SavedAgents: state.Agents,
		ActiveKey:   state.ActiveKeyValue(),
		Error:       errMsg,
	}

	if page.APIKey != "" {
		if profile := s.facade.FetchProfile(ctx); profile.Available {
			agent := profile.Agent
			page.Agent = &agent
		}
		if status := s.facade.FetchStatus(ctx); status.Available {
			page.Status = status.Status
		}
	}

	s.renderer.render(w, "index", page)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, "")
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.renderer.render(w, "login", loginPage{pageBase: s.base("Log in")})
}

// handleLogin stores the submitted key and makes it active. The key is
// kept even when the profile probe fails, so a key can be saved while
// Moltbook is down.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	apiKey := strings.TrimSpace(r.FormValue("api_key"))
	if apiKey == "" {
		http.Error(w, "api_key is required", http.StatusUnprocessableEntity)
		return
	}

	result, err := s.facade.Login(ctx, apiKey)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to save credentials")
		http.Error(w, "Failed to save credentials", http.StatusInternalServerError)
		return
	}

	detail := ""
	if !result.Verified {
		detail = "profile probe failed, stored as Unknown"
	}
	s.journal.Record(ctx, "login", result.AgentName, "success", detail)
	s.hub.Broadcast("session.changed", map[string]interface{}{
		"action":     "login",
		"agent_name": result.AgentName,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleAddAgent verifies the submitted key before storing it. A
// rejected or unreachable key stores nothing and re-renders the
// dashboard with the error.
func (s *Server) handleAddAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	apiKey := strings.TrimSpace(r.FormValue("api_key"))
	if apiKey == "" {
		http.Error(w, "api_key is required", http.StatusUnprocessableEntity)
		return
	}

	result, err := s.facade.AddAgent(ctx, apiKey)
	if err != nil {
		msg := fmt.Sprintf("Failed to add agent: %v", err)
		if errors.Is(err, session.ErrAgentNotFound) {
			msg = "Invalid API key or agent not found"
		}
		s.journal.Record(ctx, "add_agent", "", "rejected", msg)
		s.renderDashboard(w, r, msg)
		return
	}

	s.journal.Record(ctx, "add_agent", result.AgentName, "success", "")
	s.hub.Broadcast("session.changed", map[string]interface{}{
		"action":     "add_agent",
		"agent_name": result.AgentName,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	apiKey := r.PathValue("key")

	if err := s.facade.Switch(ctx, apiKey); err != nil {
		s.logger.Error().Err(err).Msg("Failed to switch agent")
		http.Error(w, "Failed to switch agent", http.StatusInternalServerError)
		return
	}

	actor := s.activeAgentName()
	s.journal.Record(ctx, "switch", actor, "success", "")
	s.hub.Broadcast("session.changed", map[string]interface{}{
		"action":     "switch",
		"agent_name": actor,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	apiKey := r.PathValue("key")

	if err := s.facade.Delete(ctx, apiKey); err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete agent")
		http.Error(w, "Failed to delete agent", http.StatusInternalServerError)
		return
	}

	s.journal.Record(ctx, "delete", "", "success", "")
	s.hub.Broadcast("session.changed", map[string]interface{}{
		"action": "delete",
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.renderer.render(w, "register", registerPage{pageBase: s.base("Register")})
}

// handleRegister creates a new agent. Success renders the one-time
// credential bundle instead of redirecting, because the API key is
// never shown again.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name := strings.TrimSpace(r.FormValue("name"))
	description := r.FormValue("description")
	if name == "" {
		http.Error(w, "name is required", http.StatusUnprocessableEntity)
		return
	}

	result, err := s.facade.Register(ctx, name, description)
	if err != nil {
		msg := err.Error()
		var apiErr *moltbook.APIError
		if errors.As(err, &apiErr) {
			hint := apiErr.Hint
			if hint == "" {
				hint = "Try a different name"
			}
			msg = fmt.Sprintf("%s (Hint: %s)", apiErr.Message, hint)
		}
		s.journal.Record(ctx, "register", name, "error", msg)
		s.renderer.render(w, "register", registerPage{
			pageBase: s.base("Register"),
			Error:    msg,
		})
		return
	}

	s.journal.Record(ctx, "register", result.AgentName, "success", "")
	s.hub.Broadcast("session.changed", map[string]interface{}{
		"action":     "register",
		"agent_name": result.AgentName,
	})
	s.renderer.render(w, "register_success", registerSuccessPage{
		pageBase: s.base("Registered"),
		Result:   result,
	})
}

func (s *Server) handlePostPage(w http.ResponseWriter, r *http.Request) {
	if s.facade.ActiveKey() == "" {
		http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
		return
	}

	page := postPage{pageBase: s.base("New post")}
	if submolts := s.facade.FetchSubmolts(r.Context()); submolts.Available {
		page.Submolts = submolts.Submolts
	}
	s.renderer.render(w, "post", page)
}

// handleCreatePost publishes a post and re-renders the composer with
// the outcome banner.
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	title := r.FormValue("title")
	if strings.TrimSpace(title) == "" {
		http.Error(w, "title is required", http.StatusUnprocessableEntity)
		return
	}
	if s.facade.ActiveKey() == "" {
		// A 307 here would replay the POST against /login.
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	submolt := r.FormValue("submolt")
	if submolt == "" {
		submolt = "general"
	}
	post := moltbook.NewPost{
		Title:   title,
		Submolt: submolt,
		Content: r.FormValue("content"),
		URL:     strings.TrimSpace(r.FormValue("url")),
	}

	page := postPage{pageBase: s.base("New post")}
	if err := s.facade.CreatePost(ctx, post); err != nil {
		msg := err.Error()
		var apiErr *moltbook.APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.Message
		}
		page.Error = msg
		s.journal.Record(ctx, "post", s.activeAgentName(), "error", msg)
	} else {
		page.Success = "Post created successfully!"
		s.journal.Record(ctx, "post", s.activeAgentName(), "success", title)
		s.hub.Broadcast("post.created", map[string]interface{}{
			"title":   title,
			"submolt": submolt,
		})
	}

	if submolts := s.facade.FetchSubmolts(ctx); submolts.Available {
		page.Submolts = submolts.Submolts
	}
	s.renderer.render(w, "post", page)
}

func (s *Server) handleMyPosts(w http.ResponseWriter, r *http.Request) {
	if s.facade.ActiveKey() == "" {
		http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
		return
	}

	page := myPostsPage{
		pageBase:  s.base("My posts"),
		AgentName: "Unknown",
		Posts:     []moltbook.Post{},
	}
	if posts := s.facade.FetchRecentPosts(r.Context()); posts.Available {
		page.AgentName = posts.AgentName
		page.Posts = posts.Posts
	}
	s.renderer.render(w, "my_posts", page)
}

func (s *Server) handleMyPostAlias(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/my-posts", http.StatusTemporaryRedirect)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.facade.Logout(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Failed to log out")
		http.Error(w, "Failed to log out", http.StatusInternalServerError)
		return
	}

	s.journal.Record(ctx, "logout", "", "success", "")
	s.hub.Broadcast("session.changed", map[string]interface{}{
		"action": "logout",
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	entries, err := s.journal.Recent(r.Context(), 50)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load activity")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.renderer.render(w, "activity", activityPage{
		pageBase: s.base("Activity"),
		Entries:  entries,
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.facade.State()

	response := map[string]interface{}{
		"status":      "ok",
		"uptime":      time.Since(s.startTime).Seconds(),
		"savedAgents": len(state.Agents),
		"hasSession":  state.ActiveKeyValue() != "",
		"timestamp":   time.Now().UnixMilli(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
