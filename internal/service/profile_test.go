package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/profilesync/internal/apperror"
	"github.com/sakif/profilesync/internal/model"
)

// syncedRepo returns a fake store already holding a record for each id.
func syncedRepo(t *testing.T, ids ...string) *fakeUserRepo {
	t.Helper()
	repo := newFakeUserRepo()
	svc := newTestSyncService(repo)
	for _, id := range ids {
		_, err := svc.Sync(context.Background(), &model.Identity{ID: id, Emails: []string{id + "@example.com"}})
		require.NoError(t, err)
	}
	repo.writes = 0
	return repo
}

func newTestProfileService(repo *fakeUserRepo) *ProfileService {
	return NewProfileService(repo, testLogger())
}

func boolPtr(b bool) *bool { return &b }

// requireValidation asserts err is a ValidationError on field and that
// nothing was written.
func requireValidation(t *testing.T, repo *fakeUserRepo, err error, field string) {
	t.Helper()
	require.ErrorIs(t, err, apperror.ErrValidation)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, field, appErr.Field)
	assert.Zero(t, repo.writes, "validation failure must not write")
}

// =========================================================================
// VALIDATION TESTS
// =========================================================================

func TestUpdate_UsernameRequired(t *testing.T) {
	for _, username := range []string{"", "   ", "\t\n"} {
		repo := syncedRepo(t, "u1")
		svc := newTestProfileService(repo)

		_, err := svc.Update(context.Background(), model.Principal{ID: "u1"}, ProfileInput{Username: username})
		requireValidation(t, repo, err, "username")
	}
}

func TestUpdate_BioLength(t *testing.T) {
	repo := syncedRepo(t, "u1")
	svc := newTestProfileService(repo)
	principal := model.Principal{ID: "u1"}

	_, err := svc.Update(context.Background(), principal, ProfileInput{Username: "alice", Bio: strings.Repeat("a", 501)})
	requireValidation(t, repo, err, "bio")

	user, err := svc.Update(context.Background(), principal, ProfileInput{Username: "alice", Bio: strings.Repeat("a", 500)})
	require.NoError(t, err)
	assert.Len(t, model.Deref(user.Bio), 500)
}

func TestUpdate_BioCountsCharactersAfterTrim(t *testing.T) {
	repo := syncedRepo(t, "u1")
	svc := newTestProfileService(repo)

	// 500 two-byte characters, padded with whitespace.
	bio := "  " + strings.Repeat("é", 500) + "  "
	user, err := svc.Update(context.Background(), model.Principal{ID: "u1"}, ProfileInput{Username: "alice", Bio: bio})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 500), model.Deref(user.Bio))
}

func TestUpdate_Website(t *testing.T) {
	tests := []struct {
		website string
		valid   bool
		stored  *string
	}{
		{"not a url", false, nil},
		{"alice.dev", false, nil},
		{"https://", false, nil},
		{"", true, nil},
		{"   ", true, nil},
		{"https://alice.dev", true, model.Ptr("https://alice.dev")},
		{" http://alice.dev/path?q=1 ", true, model.Ptr("http://alice.dev/path?q=1")},
	}

	for _, tt := range tests {
		t.Run(tt.website, func(t *testing.T) {
			repo := syncedRepo(t, "u1")
			svc := newTestProfileService(repo)

			user, err := svc.Update(context.Background(), model.Principal{ID: "u1"}, ProfileInput{Username: "alice", Website: tt.website})
			if !tt.valid {
				requireValidation(t, repo, err, "website")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.stored, user.Website)
		})
	}
}

func TestUpdate_UnknownTheme(t *testing.T) {
	repo := syncedRepo(t, "u1")
	svc := newTestProfileService(repo)

	_, err := svc.Update(context.Background(), model.Principal{ID: "u1"}, ProfileInput{Username: "alice", Theme: "neon"})
	requireValidation(t, repo, err, "theme")
}

func TestUpdate_ValidationOrder(t *testing.T) {
	repo := syncedRepo(t, "u1")
	svc := newTestProfileService(repo)

	// Every rule is broken; username is reported first.
	_, err := svc.Update(context.Background(), model.Principal{ID: "u1"}, ProfileInput{
		Bio:     strings.Repeat("a", 501),
		Website: "nope",
		Theme:   "neon",
	})
	requireValidation(t, repo, err, "username")
}

// =========================================================================
// NORMALIZATION AND DEFAULTS
// =========================================================================

func TestUpdate_Defaults(t *testing.T) {
	repo := syncedRepo(t, "u1")
	svc := newTestProfileService(repo)

	user, err := svc.Update(context.Background(), model.Principal{ID: "u1"}, ProfileInput{Username: "alice"})
	require.NoError(t, err)

	assert.Equal(t, model.ThemeLight, user.Theme)
	assert.Equal(t, "fr", user.Language)
	assert.True(t, user.EmailNotifications)
}

func TestUpdate_ExplicitPreferences(t *testing.T) {
	repo := syncedRepo(t, "u1")
	svc := newTestProfileService(repo)

	user, err := svc.Update(context.Background(), model.Principal{ID: "u1"}, ProfileInput{
		Username:           "alice",
		EmailNotifications: boolPtr(false),
		Theme:              "auto",
		Language:           "en",
	})
	require.NoError(t, err)

	assert.False(t, user.EmailNotifications)
	assert.Equal(t, model.ThemeAuto, user.Theme)
	assert.Equal(t, "en", user.Language)
}

func TestUpdate_TrimsAndNullsFreeText(t *testing.T) {
	repo := syncedRepo(t, "u1")
	svc := newTestProfileService(repo)

	user, err := svc.Update(context.Background(), model.Principal{ID: "u1"}, ProfileInput{
		Username: "  alice  ",
		Company:  "  Acme  ",
		JobTitle: "   ",
		Location: "",
		Twitter:  "@alice ",
		LinkedIn: "\t",
		GitHub:   " alice",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Acme", model.Deref(user.Company))
	assert.Nil(t, user.JobTitle)
	assert.Nil(t, user.Location)
	assert.Equal(t, "@alice", model.Deref(user.Twitter))
	assert.Nil(t, user.LinkedIn)
	assert.Equal(t, "alice", model.Deref(user.GitHub))
	assert.Nil(t, user.Bio)
}

// =========================================================================
// AUTHORIZATION AND STORE ERRORS
// =========================================================================

func TestUpdate_Unauthenticated(t *testing.T) {
	repo := syncedRepo(t, "u1")
	svc := newTestProfileService(repo)

	_, err := svc.Update(context.Background(), model.Principal{}, ProfileInput{Username: "alice"})
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	assert.Zero(t, repo.writes)
}

func TestUpdate_DuplicateUsername(t *testing.T) {
	repo := syncedRepo(t, "u1", "u2")
	svc := newTestProfileService(repo)

	_, err := svc.Update(context.Background(), model.Principal{ID: "u1"}, ProfileInput{Username: "alice"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), model.Principal{ID: "u2"}, ProfileInput{Username: "alice"})
	require.ErrorIs(t, err, apperror.ErrConflict)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "username", appErr.Field)
}

func TestUpdate_NeverSynced(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestProfileService(repo)

	_, err := svc.Update(context.Background(), model.Principal{ID: "ghost"}, ProfileInput{Username: "alice"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdate_PersistenceError(t *testing.T) {
	repo := syncedRepo(t, "u1")
	repo.updateErr = apperror.Persistence("updating user", errors.New("disk I/O error"))
	svc := newTestProfileService(repo)

	_, err := svc.Update(context.Background(), model.Principal{ID: "u1"}, ProfileInput{Username: "alice"})
	assert.ErrorIs(t, err, apperror.ErrPersistence)
}

func TestUpdate_OnlyTouchesCallerRecord(t *testing.T) {
	repo := syncedRepo(t, "u1", "u2")
	svc := newTestProfileService(repo)

	_, err := svc.Update(context.Background(), model.Principal{ID: "u2"}, ProfileInput{Username: "bob", Bio: "mine"})
	require.NoError(t, err)

	other, err := repo.FindByIdentityID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", other.Username)
	assert.Nil(t, other.Bio)
}

// =========================================================================
// Get
// =========================================================================

func TestGet(t *testing.T) {
	repo := syncedRepo(t, "u1")
	svc := newTestProfileService(repo)

	user, err := svc.Get(context.Background(), model.Principal{ID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", user.Email)

	_, err = svc.Get(context.Background(), model.Principal{})
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	_, err = svc.Get(context.Background(), model.Principal{ID: "ghost"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// END TO END
// =========================================================================

func TestSyncThenUpdate_EndToEnd(t *testing.T) {
	repo := newFakeUserRepo()
	syncSvc := newTestSyncService(repo)
	profileSvc := newTestProfileService(repo)
	ctx := context.Background()

	created, err := syncSvc.Sync(ctx, &model.Identity{ID: "u1", Emails: []string{"a@b.com"}})
	require.NoError(t, err)
	assert.Equal(t, "u1", created.IdentityID)
	assert.Equal(t, "a@b.com", created.Email)
	assert.Equal(t, "a", created.Username)

	updated, err := profileSvc.Update(ctx, model.Principal{ID: "u1"}, ProfileInput{
		Username: "alice",
		Bio:      "hi",
		Website:  "https://alice.dev",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", updated.Username)
	assert.Equal(t, "hi", model.Deref(updated.Bio))
	assert.Equal(t, "https://alice.dev", model.Deref(updated.Website))
	assert.Equal(t, "a@b.com", updated.Email)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
}
