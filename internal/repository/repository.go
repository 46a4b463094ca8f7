// Package repository declares the persistent user store boundary.
package repository

import (
	"context"

	"github.com/sakif/profilesync/internal/model"
)

// UserRepository is keyed by the identity provider's id. Implementations
// must return *apperror.AppError values:
//   - ErrNotFound when no row matches
//   - ErrConflict (Field set) on a unique violation
//   - ErrSchemaDrift when a column or table is missing
//   - ErrPersistence for anything else
type UserRepository interface {
	FindByIdentityID(ctx context.Context, identityID string) (*model.User, error)
	// UpsertByIdentityID inserts a new row with default preferences or
	// overwrites the identity fields of the existing one, in one statement.
	UpsertByIdentityID(ctx context.Context, identityID string, fields model.IdentityFields) (*model.User, error)
	// UpdateByIdentityID overwrites the profile fields of an existing row.
	UpdateByIdentityID(ctx context.Context, identityID string, fields model.ProfileFields) (*model.User, error)
}

// ProfileColumnsSQL is the manual migration (PostgreSQL syntax) operators
// run when a store reports schema drift on the profile columns.
const ProfileColumnsSQL = `ALTER TABLE users ADD COLUMN IF NOT EXISTS bio TEXT;
ALTER TABLE users ADD COLUMN IF NOT EXISTS company TEXT;
ALTER TABLE users ADD COLUMN IF NOT EXISTS job_title TEXT;
ALTER TABLE users ADD COLUMN IF NOT EXISTS location TEXT;
ALTER TABLE users ADD COLUMN IF NOT EXISTS website TEXT;
ALTER TABLE users ADD COLUMN IF NOT EXISTS twitter TEXT;
ALTER TABLE users ADD COLUMN IF NOT EXISTS linkedin TEXT;
ALTER TABLE users ADD COLUMN IF NOT EXISTS github TEXT;
ALTER TABLE users ADD COLUMN IF NOT EXISTS email_notifications BOOLEAN NOT NULL DEFAULT true;
ALTER TABLE users ADD COLUMN IF NOT EXISTS theme TEXT NOT NULL DEFAULT 'light';
ALTER TABLE users ADD COLUMN IF NOT EXISTS language TEXT NOT NULL DEFAULT 'fr';`

// ProfileColumns lists the columns added by the profile migration with
// their SQL definitions, in order. Stores use it to add them one by one.
var ProfileColumns = []struct {
	Name       string
	Definition string
}{
	{"bio", "TEXT"},
	{"company", "TEXT"},
	{"job_title", "TEXT"},
	{"location", "TEXT"},
	{"website", "TEXT"},
	{"twitter", "TEXT"},
	{"linkedin", "TEXT"},
	{"github", "TEXT"},
	{"email_notifications", "BOOLEAN NOT NULL DEFAULT true"},
	{"theme", "TEXT NOT NULL DEFAULT 'light'"},
	{"language", "TEXT NOT NULL DEFAULT 'fr'"},
}
