package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/profilesync/internal/apperror"
	"github.com/sakif/profilesync/internal/model"
	"github.com/sakif/profilesync/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, identity_id, email, username, first_name, last_name, avatar_url,
	bio, company, job_title, location, website, twitter, linkedin, github,
	email_notifications, theme, language, created_at, updated_at`

// FindByIdentityID fetches the row for identityID.
func (db *DB) FindByIdentityID(ctx context.Context, identityID string) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE identity_id = $1`, identityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", identityID)
		}
		return nil, classify("finding user", err)
	}
	return &u, nil
}

// UpsertByIdentityID inserts or refreshes the identity columns in one statement.
func (db *DB) UpsertByIdentityID(ctx context.Context, identityID string, f model.IdentityFields) (*model.User, error) {
	now := time.Now().UTC()

	var u model.User
	err := db.conn.GetContext(ctx, &u,
		`INSERT INTO users (id, identity_id, email, username, first_name, last_name, avatar_url,
			email_notifications, theme, language, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		 ON CONFLICT (identity_id) DO UPDATE SET
			email      = EXCLUDED.email,
			username   = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name  = EXCLUDED.last_name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = EXCLUDED.updated_at
		 RETURNING `+userColumns,
		xid.New().String(),
		identityID,
		f.Email,
		f.Username,
		f.FirstName,
		f.LastName,
		f.AvatarURL,
		model.DefaultEmailNotifications,
		string(model.DefaultTheme),
		model.DefaultLanguage,
		now,
	)
	if err != nil {
		return nil, classify(fmt.Sprintf("upserting user %s", identityID), err)
	}
	return &u, nil
}

// UpdateByIdentityID overwrites the profile columns.
func (db *DB) UpdateByIdentityID(ctx context.Context, identityID string, f model.ProfileFields) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u,
		`UPDATE users SET
			username = $1, bio = $2, company = $3, job_title = $4, location = $5,
			website = $6, twitter = $7, linkedin = $8, github = $9,
			email_notifications = $10, theme = $11, language = $12, updated_at = $13
		 WHERE identity_id = $14
		 RETURNING `+userColumns,
		f.Username,
		f.Bio,
		f.Company,
		f.JobTitle,
		f.Location,
		f.Website,
		f.Twitter,
		f.LinkedIn,
		f.GitHub,
		f.EmailNotifications,
		string(f.Theme),
		f.Language,
		time.Now().UTC(),
		identityID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", identityID)
		}
		return nil, classify(fmt.Sprintf("updating user %s", identityID), err)
	}
	return &u, nil
}
