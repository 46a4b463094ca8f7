package model

import "strings"

// Identity is what an identity provider tells us about the signed-in
// principal. It contains facts only, no local state.
//
// Absence is explicit: an empty Emails slice means the provider returned no
// address, and an empty string in any other field means the provider did
// not supply it.
type Identity struct {
	ID        string   `json:"id"`       // provider-scoped unique id, e.g. "github:1234"
	Provider  string   `json:"provider"` // e.g. "github", "oidc"
	Emails    []string `json:"emails"`   // primary address first
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Username  string   `json:"username,omitempty"`
	ImageURL  string   `json:"imageUrl,omitempty"`
}

// PrimaryEmail returns the first non-blank address, or "" if there is none.
func (i *Identity) PrimaryEmail() string {
	for _, e := range i.Emails {
		if e = strings.TrimSpace(e); e != "" {
			return e
		}
	}
	return ""
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	ID string
}

// Authenticated reports whether the principal carries an identity id.
func (p Principal) Authenticated() bool {
	return p.ID != ""
}
