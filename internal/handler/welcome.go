package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/profilesync/internal/apperror"
	"github.com/sakif/profilesync/internal/auth"
	"github.com/sakif/profilesync/internal/model"
)

// Synchronizer is the part of service.SyncService the handlers use.
type Synchronizer interface {
	Sync(ctx context.Context, identity *model.Identity) (*model.User, error)
}

// WelcomeHandler is the post-login transition route.
type WelcomeHandler struct {
	sync   Synchronizer
	logger *slog.Logger
}

// NewWelcomeHandler creates a WelcomeHandler.
func NewWelcomeHandler(sync Synchronizer, logger *slog.Logger) *WelcomeHandler {
	return &WelcomeHandler{sync: sync, logger: logger}
}

// HandleWelcome runs synchronization once and moves on to the dashboard.
//
// HTTP: GET /welcome
//
// The route is public so the guard doesn't bounce a user whose cookie was
// just set; it checks the principal itself. Synchronization failures are
// logged and the user still lands on /members, which reports what it can.
func (h *WelcomeHandler) HandleWelcome(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		http.Redirect(w, r, auth.SignInPath, http.StatusSeeOther)
		return
	}

	if _, err := h.sync.Sync(r.Context(), identity); err != nil {
		level := slog.LevelError
		if errors.Is(err, apperror.ErrMissingEmail) || errors.Is(err, apperror.ErrConflict) {
			level = slog.LevelWarn
		}
		h.logger.Log(r.Context(), level, "user synchronization failed",
			slog.String("identityID", identity.ID),
			slog.String("error", err.Error()),
			slog.Any("cause", causeOf(err)),
		)
	}

	http.Redirect(w, r, "/members", http.StatusSeeOther)
}
