package sqlite

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

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// userColumns is the column list every query returns, in scanUser order.
const userColumns = `id, identity_id, email, username, first_name, last_name, avatar_url,
	bio, company, job_title, location, website, twitter, linkedin, github,
	email_notifications, theme, language, created_at, updated_at`

// FindByIdentityID retrieves a user by the identity provider's id.
// Returns apperror.ErrNotFound if no user has synchronized with that id yet.
func (db *DB) FindByIdentityID(ctx context.Context, identityID string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE identity_id = ?`,
		identityID,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", identityID)
		}
		return nil, classify("finding user", err)
	}

	return u, nil
}

// UpsertByIdentityID inserts or updates a user based on their identity id.
//
// INSERT ... ON CONFLICT DO UPDATE:
// One statement, one round trip. When identity_id is new the row is
// inserted with a fresh xid, default preferences, and created_at equal to
// updated_at. When it already exists only the identity columns and
// updated_at are overwritten — the id, created_at and every profile column
// keep their stored values.
//
// RETURNING hands back the row as it is after the statement, so the caller
// always gets the canonical record.
func (db *DB) UpsertByIdentityID(ctx context.Context, identityID string, f model.IdentityFields) (*model.User, error) {
	now := time.Now().UTC()

	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO users (id, identity_id, email, username, first_name, last_name, avatar_url,
			email_notifications, theme, language, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (identity_id) DO UPDATE SET
			email      = excluded.email,
			username   = excluded.username,
			first_name = excluded.first_name,
			last_name  = excluded.last_name,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at
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
		now,
	)

	u, err := scanUser(row)
	if err != nil {
		return nil, classify(fmt.Sprintf("upserting user %s", identityID), err)
	}

	return u, nil
}

// UpdateByIdentityID overwrites the profile columns of an existing user.
// Returns apperror.ErrNotFound when the identity never synchronized.
func (db *DB) UpdateByIdentityID(ctx context.Context, identityID string, f model.ProfileFields) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`UPDATE users SET
			username = ?, bio = ?, company = ?, job_title = ?, location = ?,
			website = ?, twitter = ?, linkedin = ?, github = ?,
			email_notifications = ?, theme = ?, language = ?, updated_at = ?
		 WHERE identity_id = ?
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

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", identityID)
		}
		return nil, classify(fmt.Sprintf("updating user %s", identityID), err)
	}

	return u, nil
}

// scanUser reads one row in userColumns order.
func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.IdentityID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.AvatarURL,
		&u.Bio,
		&u.Company,
		&u.JobTitle,
		&u.Location,
		&u.Website,
		&u.Twitter,
		&u.LinkedIn,
		&u.GitHub,
		&u.EmailNotifications,
		&u.Theme,
		&u.Language,
		timestamp{&u.CreatedAt},
		timestamp{&u.UpdatedAt},
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// timestamp scans a DATETIME column. The driver returns time.Time when it
// knows the declared column type and the stored text otherwise (RETURNING
// columns, for example), so both are accepted.
type timestamp struct {
	t *time.Time
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (ts timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*ts.t = v
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	case nil:
		*ts.t = time.Time{}
		return nil
	}
	return fmt.Errorf("sqlite: cannot scan %T into timestamp", src)
}

func (ts timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*ts.t = t
			return nil
		}
	}
	return fmt.Errorf("sqlite: unrecognised timestamp %q", s)
}
