package service

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/profilesync/internal/apperror"
	"github.com/sakif/profilesync/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
// Using a fake (not a mock framework) keeps tests easy to read: you can see
// exactly what the fake does. Like the real stores it enforces unique
// usernames and returns apperror values.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User // keyed by identity id
	nextID int
	writes int
	now    time.Time

	// set to a non-nil error to simulate a database failure
	upsertErr error
	updateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users: make(map[string]*model.User),
		now:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// tick moves the fake clock so updatedAt differs between writes.
func (f *fakeUserRepo) tick() time.Time {
	f.now = f.now.Add(time.Second)
	return f.now
}

func (f *fakeUserRepo) usernameTaken(username, identityID string) bool {
	for id, u := range f.users {
		if id != identityID && u.Username == username {
			return true
		}
	}
	return false
}

func (f *fakeUserRepo) FindByIdentityID(ctx context.Context, identityID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[identityID]
	if !ok {
		return nil, apperror.NotFound("user", identityID)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) UpsertByIdentityID(ctx context.Context, identityID string, fields model.IdentityFields) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if f.usernameTaken(fields.Username, identityID) {
		return nil, apperror.UniqueConflict("username", nil)
	}

	f.writes++
	now := f.tick()

	u, ok := f.users[identityID]
	if !ok {
		f.nextID++
		u = &model.User{
			ID:                 "user-" + strconv.Itoa(f.nextID),
			IdentityID:         identityID,
			EmailNotifications: model.DefaultEmailNotifications,
			Theme:              model.DefaultTheme,
			Language:           model.DefaultLanguage,
			CreatedAt:          now,
		}
		f.users[identityID] = u
	}
	u.Email = fields.Email
	u.Username = fields.Username
	u.FirstName = fields.FirstName
	u.LastName = fields.LastName
	u.AvatarURL = fields.AvatarURL
	u.UpdatedAt = now

	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) UpdateByIdentityID(ctx context.Context, identityID string, fields model.ProfileFields) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return nil, f.updateErr
	}
	u, ok := f.users[identityID]
	if !ok {
		return nil, apperror.NotFound("user", identityID)
	}
	if f.usernameTaken(fields.Username, identityID) {
		return nil, apperror.UniqueConflict("username", nil)
	}

	f.writes++
	u.Username = fields.Username
	u.Bio = fields.Bio
	u.Company = fields.Company
	u.JobTitle = fields.JobTitle
	u.Location = fields.Location
	u.Website = fields.Website
	u.Twitter = fields.Twitter
	u.LinkedIn = fields.LinkedIn
	u.GitHub = fields.GitHub
	u.EmailNotifications = fields.EmailNotifications
	u.Theme = fields.Theme
	u.Language = fields.Language
	u.UpdatedAt = f.tick()

	copied := *u
	return &copied, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSyncService(repo *fakeUserRepo) *SyncService {
	return NewSyncService(repo, testLogger())
}

// =========================================================================
// Sync TESTS
// =========================================================================

func TestSync_NewIdentityCreatesOneRecord(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestSyncService(repo)

	user, err := svc.Sync(context.Background(), &model.Identity{
		ID:        "github:1",
		Emails:    []string{"ada@example.com"},
		FirstName: "Ada",
		LastName:  "Lovelace",
		Username:  "ada",
		ImageURL:  "https://img.example.com/ada",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.writes)
	assert.Len(t, repo.users, 1)
	assert.Equal(t, "github:1", user.IdentityID)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "ada", user.Username)
	assert.Equal(t, "Ada", model.Deref(user.FirstName))
	assert.Equal(t, "Lovelace", model.Deref(user.LastName))
	assert.Equal(t, "https://img.example.com/ada", model.Deref(user.AvatarURL))
	assert.True(t, user.CreatedAt.Equal(user.UpdatedAt), "createdAt should equal updatedAt on first sync")
	assert.True(t, user.EmailNotifications)
	assert.Equal(t, model.ThemeLight, user.Theme)
	assert.Equal(t, "fr", user.Language)
}

func TestSync_Idempotent(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestSyncService(repo)
	identity := &model.Identity{ID: "github:1", Emails: []string{"a@b.com"}, Username: "ada"}

	first, err := svc.Sync(context.Background(), identity)
	require.NoError(t, err)
	second, err := svc.Sync(context.Background(), identity)
	require.NoError(t, err)

	assert.Len(t, repo.users, 1)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	// Everything but updatedAt is unchanged.
	second.UpdatedAt = first.UpdatedAt
	assert.Equal(t, first, second)
}

func TestSync_RefreshesIdentityFieldsOnly(t *testing.T) {
	repo := newFakeUserRepo()
	syncSvc := newTestSyncService(repo)
	profileSvc := NewProfileService(repo, testLogger())
	ctx := context.Background()

	_, err := syncSvc.Sync(ctx, &model.Identity{ID: "github:1", Emails: []string{"old@b.com"}, FirstName: "Old"})
	require.NoError(t, err)
	_, err = profileSvc.Update(ctx, model.Principal{ID: "github:1"}, ProfileInput{Username: "old", Bio: "kept", Theme: "dark"})
	require.NoError(t, err)

	user, err := syncSvc.Sync(ctx, &model.Identity{ID: "github:1", Emails: []string{"new@b.com"}, FirstName: "New"})
	require.NoError(t, err)

	assert.Equal(t, "new@b.com", user.Email)
	assert.Equal(t, "New", model.Deref(user.FirstName))
	assert.Equal(t, "kept", model.Deref(user.Bio))
	assert.Equal(t, model.ThemeDark, user.Theme)
}

func TestSync_UsernameFromEmailLocalPart(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestSyncService(repo)

	user, err := svc.Sync(context.Background(), &model.Identity{ID: "u1", Emails: []string{"a@b.com"}})
	require.NoError(t, err)

	assert.Equal(t, "u1", user.IdentityID)
	assert.Equal(t, "a@b.com", user.Email)
	assert.Equal(t, "a", user.Username)
	assert.Nil(t, user.FirstName)
	assert.Nil(t, user.AvatarURL)
}

func TestSync_NoIdentity(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestSyncService(repo)

	_, err := svc.Sync(context.Background(), nil)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	_, err = svc.Sync(context.Background(), &model.Identity{})
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	assert.Zero(t, repo.writes)
}

func TestSync_MissingEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestSyncService(repo)

	for _, emails := range [][]string{nil, {}, {"  "}} {
		_, err := svc.Sync(context.Background(), &model.Identity{ID: "github:1", Emails: emails, Username: "ada"})
		assert.ErrorIs(t, err, apperror.ErrMissingEmail)
	}
	assert.Zero(t, repo.writes)
}

func TestSync_StoreErrorPassesThrough(t *testing.T) {
	repo := newFakeUserRepo()
	repo.upsertErr = apperror.SchemaDrift("bio", nil)
	svc := newTestSyncService(repo)

	_, err := svc.Sync(context.Background(), &model.Identity{ID: "github:1", Emails: []string{"a@b.com"}})
	assert.ErrorIs(t, err, apperror.ErrSchemaDrift)
}

func TestDeriveUsername(t *testing.T) {
	tests := []struct {
		provider, email, want string
	}{
		{"octo", "a@b.com", "octo"},
		{"  octo ", "a@b.com", "octo"},
		{"", "alice@example.com", "alice"},
		{"  ", "bob@example.com", "bob"},
		{"", "no-at-sign", "no-at-sign"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveUsername(tt.provider, tt.email))
	}
}
