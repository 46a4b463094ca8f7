// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take the principal as an explicit argument. They never read
// cookies, contexts set by middleware, or any other ambient state; the
// handler resolves the caller and passes it in.
//
// DEPENDENCY INJECTION:
// Both services take a repository.UserRepository (interface), NOT a
// *sqlite.DB (concrete type). Tests pass an in-memory fake, and main.go
// picks SQLite or Postgres without the services knowing.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/profilesync/internal/apperror"
	"github.com/sakif/profilesync/internal/model"
	"github.com/sakif/profilesync/internal/repository"
)

// SyncService mirrors the identity provider's view of a user into the store.
type SyncService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewSyncService creates a SyncService.
func NewSyncService(users repository.UserRepository, logger *slog.Logger) *SyncService {
	return &SyncService{users: users, logger: logger}
}

// Sync creates or refreshes the local record for identity.
//
// It runs once per sign-in, on the post-login route, not on every request.
// Calling it again with the same identity is safe: the upsert converges and
// only updatedAt moves.
//
// Only the identity columns are written (email, username, first/last name,
// avatar). Profile fields are left alone on existing rows and defaulted on
// new ones by the store.
func (s *SyncService) Sync(ctx context.Context, identity *model.Identity) (*model.User, error) {
	if identity == nil || identity.ID == "" {
		return nil, apperror.Unauthenticated()
	}

	email := identity.PrimaryEmail()
	if email == "" {
		return nil, apperror.MissingEmail(identity.ID)
	}

	fields := model.IdentityFields{
		Email:     email,
		Username:  DeriveUsername(identity.Username, email),
		FirstName: model.Ptr(strings.TrimSpace(identity.FirstName)),
		LastName:  model.Ptr(strings.TrimSpace(identity.LastName)),
		AvatarURL: model.Ptr(strings.TrimSpace(identity.ImageURL)),
	}

	user, err := s.users.UpsertByIdentityID(ctx, identity.ID, fields)
	if err != nil {
		return nil, fmt.Errorf("service/sync: syncing %s: %w", identity.ID, err)
	}

	s.logger.Info("user synchronized",
		slog.String("identityID", identity.ID),
		slog.String("userID", user.ID),
		slog.Bool("created", user.CreatedAt.Equal(user.UpdatedAt)),
	)

	return user, nil
}

// DeriveUsername returns the provider username if there is one, otherwise
// the local part of email ("a@b.com" → "a").
func DeriveUsername(providerUsername, email string) string {
	if u := strings.TrimSpace(providerUsername); u != "" {
		return u
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
