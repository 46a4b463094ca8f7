package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/sakif/profilesync/internal/auth"
)

const stateCookie = "oauth_state"

// AuthHandler manages the provider sign-in flow and the session cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignIn         → pick the default provider
//   - HandleProviderSignIn → redirect the browser to the provider
//   - HandleCallback       → receive the code, exchange it for an identity, issue JWT
//   - HandleSignOut        → clear the JWT cookie
//
// It never touches the user store. Synchronization happens afterwards on
// /welcome, exactly once per sign-in.
type AuthHandler struct {
	providers       *auth.Registry
	defaultProvider string
	tokens          *auth.TokenService
	secureCookies   bool
	logger          *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(
	providers *auth.Registry,
	defaultProvider string,
	tokens *auth.TokenService,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		providers:       providers,
		defaultProvider: defaultProvider,
		tokens:          tokens,
		secureCookies:   secureCookies,
		logger:          logger,
	}
}

// HandleSignIn sends the browser to the default provider.
//
// HTTP: GET /sign-in, GET /sign-up
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	if auth.PrincipalIDFromContext(r.Context()) != "" {
		http.Redirect(w, r, "/members", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, r.URL.Path+"/"+h.defaultProvider, http.StatusSeeOther)
}

// HandleProviderSignIn redirects the user to the provider's authorization page.
//
// HTTP: GET /sign-in/{provider}, GET /sign-up/{provider}
//
// CSRF PROTECTION VIA STATE:
// We generate a random state string and store it in a short-lived cookie.
// When the provider calls back, HandleCallback verifies the state matches.
//
// The state cookie is:
//   - HttpOnly: JavaScript can't read it
//   - SameSite=Lax: sent on the provider's top-level redirect back to us
//   - 10-minute expiry: long enough for the user to approve, short enough to limit risk
func (h *AuthHandler) HandleProviderSignIn(w http.ResponseWriter, r *http.Request) {
	provider, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		http.Error(w, "unknown identity provider", http.StatusNotFound)
		return
	}

	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the sign-in flow.
//
// HTTP: GET /sign-in/{provider}/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for the provider identity
//  3. Issue a JWT carrying that identity in an HttpOnly cookie
//  4. Redirect to /welcome, which synchronizes the user record
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	provider, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		http.Error(w, "unknown identity provider", http.StatusNotFound)
		return
	}

	// --- Step 1: Validate CSRF state ---
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie", slog.String("provider", provider.Name()))
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch", slog.String("provider", provider.Name()))
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Clear the state cookie — it's single-use
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	// The provider sends ?error=access_denied when the user refuses.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization",
			slog.String("provider", provider.Name()),
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for the identity ---
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	identity, err := provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: exchange failed",
			slog.String("provider", provider.Name()),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// --- Step 3: Issue JWT cookie ---
	tokenStr, err := h.tokens.Generate(identity)
	if err != nil {
		h.logger.Error("auth callback: token generation failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    tokenStr,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("user signed in",
		slog.String("provider", provider.Name()),
		slog.String("identityID", identity.ID),
	)

	// --- Step 4: Synchronize on the post-login route ---
	http.Redirect(w, r, "/welcome", http.StatusSeeOther)
}

// HandleSignOut clears the JWT cookie.
//
// HTTP: POST /sign-out
//
// Since we're stateless (JWT), signing out just means deleting the
// client-side cookie. The token remains technically valid until it expires,
// but without the cookie the browser can't send it.
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // tells the browser to delete the cookie immediately
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
