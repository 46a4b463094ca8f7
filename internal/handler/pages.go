// Package handler contains HTTP request handlers.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, we use http.HandlerFunc — a function with the right signature
// that automatically satisfies the Handler interface. Chi's router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (query params, body, headers)
// 2. Resolve the caller from the request context and call the service
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers should NOT contain business logic — they are the "glue" between HTTP and the services.
package handler

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/sakif/profilesync/internal/apperror"
	"github.com/sakif/profilesync/internal/auth"
	"github.com/sakif/profilesync/internal/model"
	"github.com/sakif/profilesync/internal/repository"
)

// pages are parsed together with base.html, one template set each, because
// every page defines its own "content" block.
var pages = []string{"home", "dashboard", "profile"}

var templateFuncs = template.FuncMap{
	"deref": model.Deref,
}

// PageHandler renders the HTML pages.
// It holds parsed templates so we don't re-parse them on every request.
type PageHandler struct {
	templates map[string]*template.Template
	profiles  ProfileManager
	providers []string // offered on the home page
	logger    *slog.Logger
}

// NewPageHandler parses the HTML templates found in templateDir.
//
// TEMPLATE PARSING:
// base.html defines the overall page structure with a {{template "content" .}}
// placeholder; each page file defines {{define "content"}}...{{end}} to fill it.
//
// providers are the names of the configured identity providers, in the order
// the home page lists them.
func NewPageHandler(templateDir string, profiles ProfileManager, providers []string, logger *slog.Logger) (*PageHandler, error) {
	tmpls := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New("base.html").Funcs(templateFuncs).ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, page+".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s template: %w", page, err)
		}
		tmpls[page] = t
	}

	return &PageHandler{
		templates: tmpls,
		profiles:  profiles,
		providers: providers,
		logger:    logger,
	}, nil
}

// pageData is what every page template receives.
type pageData struct {
	Title    string
	Identity *model.Identity
	User     *model.User

	// Dashboard states
	MigrationNeeded bool
	MigrationSQL    string
	NotSynced       bool

	Themes    []model.Theme
	Providers []string
}

// HandleHome serves the landing page.
//
// HTTP: GET /
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.render(w, "home", pageData{
		Title:     "ProfileSync",
		Identity:  auth.IdentityFromContext(r.Context()),
		Providers: h.providers,
	})
}

// HandleDashboard serves the members dashboard.
//
// HTTP: GET /members
//
// Schema drift does not fail the page: it renders a "migration needed"
// notice with the SQL to run.
func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	data, ok := h.loadUser(w, r, "Dashboard")
	if !ok {
		return
	}
	h.render(w, "dashboard", data)
}

// HandleProfilePage serves the profile form filled with the current values.
//
// HTTP: GET /profile
func (h *PageHandler) HandleProfilePage(w http.ResponseWriter, r *http.Request) {
	data, ok := h.loadUser(w, r, "Profile")
	if !ok {
		return
	}
	data.Themes = []model.Theme{model.ThemeLight, model.ThemeDark, model.ThemeAuto}
	h.render(w, "profile", data)
}

// loadUser reads the caller's record and turns the expected failures into
// page states. It reports false after writing an error response.
func (h *PageHandler) loadUser(w http.ResponseWriter, r *http.Request, title string) (pageData, bool) {
	principal := auth.PrincipalFromContext(r.Context())
	data := pageData{
		Title:    title,
		Identity: auth.IdentityFromContext(r.Context()),
	}

	user, err := h.profiles.Get(r.Context(), principal)
	switch {
	case err == nil:
		data.User = user
	case errors.Is(err, apperror.ErrSchemaDrift):
		h.logger.Warn("schema drift detected", slog.String("error", err.Error()), slog.Any("cause", causeOf(err)))
		data.MigrationNeeded = true
		data.MigrationSQL = repository.ProfileColumnsSQL
	case errors.Is(err, apperror.ErrNotFound):
		data.NotSynced = true
	case errors.Is(err, apperror.ErrUnauthenticated):
		http.Redirect(w, r, auth.SignInPath, http.StatusSeeOther)
		return data, false
	default:
		h.logger.Error("loading user failed",
			slog.String("identityID", principal.ID),
			slog.String("error", err.Error()),
			slog.Any("cause", causeOf(err)),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return data, false
	}

	return data, true
}

func (h *PageHandler) render(w http.ResponseWriter, page string, data pageData) {
	// Set content type header BEFORE writing the body
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := h.templates[page].ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
