package web

import (
	"net/http"

	"github.com/AnkitM1410/Clawbook-Human/internal/observability"
)

// routes builds the console mux. Page routes mirror the console URLs
// the browser uses; /healthz, /metrics and /events are the operational
// surface.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /add-agent", s.handleAddAgent)
	mux.HandleFunc("POST /switch/{key}", s.handleSwitch)
	mux.HandleFunc("POST /delete/{key}", s.handleDelete)
	mux.HandleFunc("GET /register", s.handleRegisterPage)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("GET /post", s.handlePostPage)
	mux.HandleFunc("POST /post", s.handleCreatePost)
	mux.HandleFunc("GET /my-posts", s.handleMyPosts)
	mux.HandleFunc("GET /my-post", s.handleMyPostAlias)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /activity", s.handleActivity)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", observability.MetricsHandler())
	mux.HandleFunc("GET /events", s.hub.HandleConnection)
	mux.Handle("GET /static/", http.FileServerFS(staticFS))

	return mux
}
