package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sakif/profilesync/internal/model"
)

// CookieName is the HttpOnly cookie holding the session JWT.
const CookieName = "token"

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "identity", id), ANY package that knows the string
// can read or shadow your value. Using a package-private type prevents
// collisions: only THIS package can create a key of type contextKey.
type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the signed-in identity, or nil for an
// anonymous request.
//
// Usage in handlers:
//
//	identity := auth.IdentityFromContext(r.Context())
//	if identity == nil {
//	    // anonymous user
//	}
func IdentityFromContext(ctx context.Context) *model.Identity {
	identity, _ := ctx.Value(identityKey).(*model.Identity)
	if identity == nil || identity.ID == "" {
		return nil
	}
	return identity
}

// PrincipalFromContext returns the caller as a model.Principal. The zero
// Principal means anonymous.
func PrincipalFromContext(ctx context.Context) model.Principal {
	return model.Principal{ID: PrincipalIDFromContext(ctx)}
}

// PrincipalIDFromContext returns the identity id of the caller, or "".
func PrincipalIDFromContext(ctx context.Context) string {
	if identity := IdentityFromContext(ctx); identity != nil {
		return identity.ID
	}
	return ""
}

// Guard is the route guard middleware. It runs on every request:
//
//  1. If a valid session cookie is present, the identity it carries is put
//     in the request context. A missing or invalid cookie means anonymous.
//  2. Classify decides whether the path is public.
//  3. Anonymous requests to protected paths never reach the handler:
//     /api/* gets 401 JSON, pages get a 303 redirect to /sign-in.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware is a function that takes an http.Handler and returns a new
// http.Handler. The new handler "wraps" the original:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... do stuff before the handler ...
//	        next.ServeHTTP(w, r)
//	        // ... do stuff after the handler ...
//	    })
//	}
func Guard(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity := identityFromRequest(r, tokens); identity != nil {
				r = r.WithContext(WithIdentity(r.Context(), identity))
			}

			if Classify(r.URL.Path) == Protected && PrincipalIDFromContext(r.Context()) == "" {
				rejectAnonymous(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// identityFromRequest reads the session cookie and validates it.
//
// COOKIE FLOW:
// 1. Set-Cookie: token=<jwt>; HttpOnly; Secure; SameSite=Lax (set on sign-in)
// 2. Browser automatically sends Cookie: token=<jwt> on subsequent requests
// 3. We read r.Cookie("token") and validate it
func identityFromRequest(r *http.Request, tokens *TokenService) *model.Identity {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	identity, err := tokens.Validate(cookie.Value)
	if err != nil {
		return nil
	}
	return identity
}

func rejectAnonymous(w http.ResponseWriter, r *http.Request) {
	if isAPIPath(r.URL.Path) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "authentication required",
			"code":  "unauthenticated",
		})
		return
	}
	http.Redirect(w, r, SignInPath, http.StatusSeeOther)
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}
