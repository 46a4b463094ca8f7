package sqlite

import (
	"errors"
	"strings"

	"github.com/sakif/profilesync/internal/apperror"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// columnFields maps column names to the JSON field names the API reports.
var columnFields = map[string]string{
	"identity_id": "identityId",
	"username":    "username",
	"email":       "email",
	"job_title":   "jobTitle",
}

// classify turns a driver error into an *apperror.AppError.
//
// SQLite reports a unique violation as extended code 2067 with a message like
//
//	UNIQUE constraint failed: users.username
//
// and a missing column as a plain SQL logic error ("no such column: bio" on
// reads, "table users has no column named bio" on writes).
func classify(op string, err error) error {
	var sqliteErr *moderncsqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return apperror.UniqueConflict(uniqueField(sqliteErr.Error()), err)
		}
	}

	msg := err.Error()
	if col, ok := missingColumn(msg); ok {
		return apperror.SchemaDrift(col, err)
	}
	if strings.Contains(msg, "no such table") {
		return apperror.SchemaDrift("users", err)
	}

	return apperror.Persistence(op, err)
}

// uniqueField extracts the first column named in a UNIQUE constraint message.
func uniqueField(msg string) string {
	_, rest, ok := strings.Cut(msg, "constraint failed: ")
	if !ok {
		return "field"
	}
	// Older builds repeat the prefix: "constraint failed: UNIQUE constraint failed: users.username"
	if _, again, ok := strings.Cut(rest, "constraint failed: "); ok {
		rest = again
	}
	col, _, _ := strings.Cut(rest, ",")
	col, _, _ = strings.Cut(col, " ")
	if _, after, ok := strings.Cut(col, "."); ok {
		col = after
	}
	return fieldName(strings.TrimSpace(col))
}

// missingColumn extracts the column name from a "no such column" message.
func missingColumn(msg string) (string, bool) {
	for _, marker := range []string{"no such column: ", "has no column named "} {
		if _, rest, ok := strings.Cut(msg, marker); ok {
			col, _, _ := strings.Cut(rest, " ")
			if _, after, ok := strings.Cut(col, "."); ok {
				col = after
			}
			return fieldName(col), true
		}
	}
	return "", false
}

func fieldName(column string) string {
	if f, ok := columnFields[column]; ok {
		return f
	}
	if column == "" {
		return "field"
	}
	return column
}
