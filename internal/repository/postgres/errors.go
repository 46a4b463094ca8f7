package postgres

import (
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/sakif/profilesync/internal/apperror"
)

// SQLSTATE codes we classify.
const (
	codeUniqueViolation = "23505"
	codeUndefinedColumn = "42703"
	codeUndefinedTable  = "42P01"
)

var columnFields = map[string]string{
	"identity_id": "identityId",
	"job_title":   "jobTitle",
}

// classify turns a *pq.Error into an *apperror.AppError.
func classify(op string, err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return apperror.Persistence(op, err)
	}

	switch string(pqErr.Code) {
	case codeUniqueViolation:
		return apperror.UniqueConflict(uniqueField(pqErr), err)
	case codeUndefinedColumn:
		return apperror.SchemaDrift(undefinedColumn(pqErr.Message), err)
	case codeUndefinedTable:
		return apperror.SchemaDrift("users", err)
	}

	return apperror.Persistence(op, err)
}

// uniqueField reads the column from the violation detail,
// "Key (username)=(alice) already exists.", falling back to the constraint
// name ("users_username_key").
func uniqueField(e *pq.Error) string {
	if _, rest, ok := strings.Cut(e.Detail, "Key ("); ok {
		col, _, _ := strings.Cut(rest, ")")
		col, _, _ = strings.Cut(col, ",")
		return fieldName(strings.TrimSpace(col))
	}
	if e.Constraint != "" {
		col := strings.TrimPrefix(e.Constraint, "users_")
		col = strings.TrimSuffix(col, "_key")
		return fieldName(col)
	}
	return "field"
}

// undefinedColumn reads the column from `column "bio" does not exist`.
func undefinedColumn(msg string) string {
	_, rest, ok := strings.Cut(msg, `column "`)
	if !ok {
		return "field"
	}
	col, _, _ := strings.Cut(rest, `"`)
	if _, after, ok := strings.Cut(col, "."); ok {
		col = after
	}
	return fieldName(col)
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
