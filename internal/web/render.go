package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageNames = []string{
	"index",
	"login",
	"register",
	"register_success",
	"post",
	"my_posts",
	"activity",
}

// renderer holds the parsed page templates. Every page is parsed
// together with the shared layout.
type renderer struct {
	templates map[string]*template.Template
	logger    zerolog.Logger
}

func newRenderer(logger zerolog.Logger) (*renderer, error) {
	funcs := template.FuncMap{
		"maskKey": maskKey,
	}

	templates := make(map[string]*template.Template, len(pageNames))
	for _, page := range pageNames {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+page+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		templates[page] = tmpl
	}

	return &renderer{
		templates: templates,
		logger:    logger,
	}, nil
}

// render executes a page into a buffer first so a template error never
// emits half a page.
func (r *renderer) render(w http.ResponseWriter, page string, data interface{}) {
	tmpl, ok := r.templates[page]
	if !ok {
		r.logger.Error().Str("page", page).Msg("Unknown template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.logger.Error().Err(err).Str("page", page).Msg("Failed to render template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// maskKey shortens an API key for display, keeping only the tail.
func maskKey(key string) string {
	if len(key) <= 8 {
		return key
	}
	return "..." + key[len(key)-8:]
}
