// Package repositories holds the SQL for every table of the service.
// Repositories are stateless; each method takes the interfaces.DBTX to run on, so the same code
// serves plain pool calls and statements inside a transaction.
package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Constraint names, see internal/migrations.
const (
	constraintAccountName  = "auth_accounts_name_key"
	constraintContactURI   = "auth_contacts_schema_uri_key"
	constraintTokenAccount = "auth_tokens_account_scheme_token_key"
)

// pgUniqueConstraint returns the violated unique constraint, if err is a unique violation.
func pgUniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func pgIsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
