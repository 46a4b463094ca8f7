package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/profilesync/internal/apperror"
	"github.com/sakif/profilesync/internal/auth"
	"github.com/sakif/profilesync/internal/model"
	"github.com/sakif/profilesync/internal/service"
)

// maxProfileBody caps the PUT body. The largest legitimate form is well
// under this.
const maxProfileBody = 64 << 10

// ProfileManager is the part of service.ProfileService the handlers use.
type ProfileManager interface {
	Get(ctx context.Context, principal model.Principal) (*model.User, error)
	Update(ctx context.Context, principal model.Principal, in service.ProfileInput) (*model.User, error)
}

// ProfileResponse is the success payload of PUT /api/profile.
type ProfileResponse struct {
	Success bool        `json:"success"`
	User    *model.User `json:"user"`
}

// ProfileHandler serves the profile API.
type ProfileHandler struct {
	profiles ProfileManager
	logger   *slog.Logger
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(profiles ProfileManager, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// HandleGetProfile returns the caller's record.
//
// HTTP: GET /api/profile
func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.profiles.Get(r.Context(), auth.PrincipalFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateProfile validates and saves the caller's editable fields.
//
// HTTP: PUT /api/profile
// Body: {"username": "...", "bio": "...", ..., "emailNotifications": true, "theme": "dark", "language": "en"}
//
// The principal always comes from the session, never from the body, so a
// caller can only ever update their own record.
func (h *ProfileHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if !principal.Authenticated() {
		writeError(w, apperror.Unauthenticated())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxProfileBody)

	var in service.ProfileInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, apperror.ValidationFailed("", "invalid request body"))
		return
	}

	user, err := h.profiles.Update(r.Context(), principal, in)
	if err != nil {
		h.logger.Info("profile update rejected",
			slog.String("identityID", principal.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{Success: true, User: user})
}
