package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/sakif/profilesync/internal/apperror"
	"github.com/sakif/profilesync/internal/model"
	"github.com/sakif/profilesync/internal/repository"
)

// MaxBioLength is counted in characters, after trimming.
const MaxBioLength = 500

// ProfileInput is the candidate field set sent by the profile form.
// Any field may be empty; EmailNotifications is a pointer so "not sent"
// can default to true.
type ProfileInput struct {
	Username           string `json:"username"`
	Bio                string `json:"bio"`
	Company            string `json:"company"`
	JobTitle           string `json:"jobTitle"`
	Location           string `json:"location"`
	Website            string `json:"website"`
	Twitter            string `json:"twitter"`
	LinkedIn           string `json:"linkedin"`
	GitHub             string `json:"github"`
	EmailNotifications *bool  `json:"emailNotifications"`
	Theme              string `json:"theme"`
	Language           string `json:"language"`
}

// ProfileService reads and updates the caller's own record.
type ProfileService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewProfileService creates a ProfileService.
func NewProfileService(users repository.UserRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{users: users, logger: logger}
}

// Get returns the caller's record.
func (s *ProfileService) Get(ctx context.Context, principal model.Principal) (*model.User, error) {
	if !principal.Authenticated() {
		return nil, apperror.Unauthenticated()
	}

	user, err := s.users.FindByIdentityID(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("service/profile: fetching %s: %w", principal.ID, err)
	}
	return user, nil
}

// Update validates in and overwrites the caller's profile fields.
//
// Validation runs entirely before the store is touched, so a rejected
// request never writes. The target row is always the principal's own; there
// is no way to name another user through this method.
func (s *ProfileService) Update(ctx context.Context, principal model.Principal, in ProfileInput) (*model.User, error) {
	if !principal.Authenticated() {
		return nil, apperror.Unauthenticated()
	}

	fields, err := normalizeProfile(in)
	if err != nil {
		return nil, err
	}

	user, err := s.users.UpdateByIdentityID(ctx, principal.ID, fields)
	if err != nil {
		return nil, fmt.Errorf("service/profile: updating %s: %w", principal.ID, err)
	}

	s.logger.Info("profile updated",
		slog.String("identityID", principal.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// normalizeProfile applies the validation rules in order and returns the
// first failure, or the trimmed and defaulted field set.
func normalizeProfile(in ProfileInput) (model.ProfileFields, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return model.ProfileFields{}, apperror.ValidationFailed("username", "username is required")
	}

	bio := strings.TrimSpace(in.Bio)
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return model.ProfileFields{}, apperror.ValidationFailed("bio",
			fmt.Sprintf("bio must be at most %d characters", MaxBioLength))
	}

	website := strings.TrimSpace(in.Website)
	if website != "" && !isAbsoluteURL(website) {
		return model.ProfileFields{}, apperror.ValidationFailed("website", "website must be a valid URL")
	}

	theme := model.DefaultTheme
	if t := strings.TrimSpace(in.Theme); t != "" {
		theme = model.Theme(t)
		if !theme.Valid() {
			return model.ProfileFields{}, apperror.ValidationFailed("theme",
				fmt.Sprintf("theme must be one of %s, %s or %s", model.ThemeLight, model.ThemeDark, model.ThemeAuto))
		}
	}

	language := strings.TrimSpace(in.Language)
	if language == "" {
		language = model.DefaultLanguage
	}

	notifications := model.DefaultEmailNotifications
	if in.EmailNotifications != nil {
		notifications = *in.EmailNotifications
	}

	return model.ProfileFields{
		Username:           username,
		Bio:                model.Ptr(bio),
		Company:            optional(in.Company),
		JobTitle:           optional(in.JobTitle),
		Location:           optional(in.Location),
		Website:            model.Ptr(website),
		Twitter:            optional(in.Twitter),
		LinkedIn:           optional(in.LinkedIn),
		GitHub:             optional(in.GitHub),
		EmailNotifications: notifications,
		Theme:              theme,
		Language:           language,
	}, nil
}

// optional trims s; blank becomes nil (stored as NULL).
func optional(s string) *string {
	return model.Ptr(strings.TrimSpace(s))
}

// isAbsoluteURL accepts "https://alice.dev" and "mailto:a@b.com" but not
// "not a url" or "alice.dev".
func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}
