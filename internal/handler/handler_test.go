package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/profilesync/internal/auth"
	"github.com/sakif/profilesync/internal/model"
	"github.com/sakif/profilesync/internal/service"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// MockProfiles implements handler.ProfileManager.
type MockProfiles struct {
	GetUser   *model.User
	GetErr    error
	UpdateErr error

	Calls         int
	CapturedID    string
	CapturedInput service.ProfileInput
}

func (m *MockProfiles) Get(ctx context.Context, principal model.Principal) (*model.User, error) {
	m.CapturedID = principal.ID
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.GetUser, nil
}

func (m *MockProfiles) Update(ctx context.Context, principal model.Principal, in service.ProfileInput) (*model.User, error) {
	m.Calls++
	m.CapturedID = principal.ID
	m.CapturedInput = in
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	return &model.User{
		IdentityID: principal.ID,
		Email:      "a@b.com",
		Username:   in.Username,
		Bio:        model.Ptr(in.Bio),
		Theme:      model.DefaultTheme,
		Language:   model.DefaultLanguage,
	}, nil
}

// MockSync implements handler.Synchronizer.
type MockSync struct {
	Err      error
	Calls    int
	Identity *model.Identity
}

func (m *MockSync) Sync(ctx context.Context, identity *model.Identity) (*model.User, error) {
	m.Calls++
	m.Identity = identity
	if m.Err != nil {
		return nil, m.Err
	}
	return &model.User{IdentityID: identity.ID, Email: identity.PrimaryEmail()}, nil
}

// MockProvider implements auth.Provider.
type MockProvider struct {
	Identity *model.Identity
	Err      error
	Code     string
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) AuthURL(state string) string {
	return "https://idp.example.com/authorize?state=" + state
}

func (m *MockProvider) Exchange(ctx context.Context, code string) (*model.Identity, error) {
	m.Code = code
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Identity, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTokens() *auth.TokenService {
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		panic(err)
	}
	return ts
}

// withIdentity returns r carrying a signed-in identity, as Guard would.
func withIdentity(r *http.Request, id string) *http.Request {
	return r.WithContext(auth.WithIdentity(r.Context(), &model.Identity{
		ID:        id,
		Provider:  "github",
		Emails:    []string{"a@b.com"},
		FirstName: "Ada",
		Username:  "ada",
	}))
}

func findCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
