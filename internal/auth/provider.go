package auth

import (
	"context"
	"sort"

	"github.com/sakif/profilesync/internal/apperror"
	"github.com/sakif/profilesync/internal/model"
)

// Provider is an external identity provider.
// Implementations return identity facts only: they never create users or
// sessions.
type Provider interface {
	// Name is the identifier used in routes and identity ids, e.g. "github".
	Name() string

	// AuthURL returns the authorization URL to redirect the browser to.
	AuthURL(state string) string

	// Exchange trades an authorization code for the caller's identity.
	Exchange(ctx context.Context, code string) (*model.Identity, error)
}

// Registry holds the configured providers by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry registers the given providers. A later provider with the same
// name replaces an earlier one.
func NewRegistry(list ...Provider) *Registry {
	m := make(map[string]Provider, len(list))
	for _, p := range list {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, apperror.NotFound("identity provider", name)
	}
	return p, nil
}

// Names lists the registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len is the number of registered providers.
func (r *Registry) Len() int {
	return len(r.providers)
}
