// Package model defines the data structures used throughout the application.
package model

import "time"

// Defaults applied to preference fields when a record is created or when the
// profile form leaves them empty.
const (
	DefaultTheme              = ThemeLight
	DefaultLanguage           = "fr"
	DefaultEmailNotifications = true
)

// Theme is the user's UI colour preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// Valid reports whether t is one of the known themes.
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeAuto:
		return true
	}
	return false
}

// User is the local mirror of an identity-provider account plus the
// profile fields the user edits on this site.
//
// Two groups of fields, two writers:
//   - Email, FirstName, LastName, AvatarURL come from the identity provider
//     and are overwritten on every synchronization.
//   - Bio through Language belong to the user and are only written by the
//     profile update.
//
// Username sits in both: synchronization derives it, the profile update lets
// the user change it.
//
// WHY *string?
// The optional columns are nullable. A nil pointer encodes as JSON null and
// is stored as SQL NULL, which keeps "not provided" distinct from "".
type User struct {
	ID         string `json:"id"         db:"id"`
	IdentityID string `json:"identityId" db:"identity_id"` // provider-scoped id, e.g. "github:1234"
	Email      string `json:"email"      db:"email"`
	Username   string `json:"username"   db:"username"`

	FirstName *string `json:"firstName" db:"first_name"`
	LastName  *string `json:"lastName"  db:"last_name"`
	AvatarURL *string `json:"avatarUrl" db:"avatar_url"`

	Bio      *string `json:"bio"      db:"bio"`
	Company  *string `json:"company"  db:"company"`
	JobTitle *string `json:"jobTitle" db:"job_title"`
	Location *string `json:"location" db:"location"`
	Website  *string `json:"website"  db:"website"`
	Twitter  *string `json:"twitter"  db:"twitter"`
	LinkedIn *string `json:"linkedin" db:"linkedin"`
	GitHub   *string `json:"github"   db:"github"`

	EmailNotifications bool   `json:"emailNotifications" db:"email_notifications"`
	Theme              Theme  `json:"theme"              db:"theme"`
	Language           string `json:"language"           db:"language"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// IdentityFields is everything synchronization is allowed to write.
type IdentityFields struct {
	Email     string
	Username  string
	FirstName *string
	LastName  *string
	AvatarURL *string
}

// ProfileFields is everything the profile update is allowed to write.
// Values are already validated and normalized.
type ProfileFields struct {
	Username           string
	Bio                *string
	Company            *string
	JobTitle           *string
	Location           *string
	Website            *string
	Twitter            *string
	LinkedIn           *string
	GitHub             *string
	EmailNotifications bool
	Theme              Theme
	Language           string
}

// Ptr returns nil for the empty string and a pointer to s otherwise.
func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
