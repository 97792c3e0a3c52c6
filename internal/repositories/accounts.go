package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/torao/kazzla/internal/apperrors"
	"github.com/torao/kazzla/internal/interfaces"
	"github.com/torao/kazzla/internal/schemas"
)

// AccountRepository reads and writes auth_accounts together with the optional role.
type AccountRepository struct{}

const accountColumns = `a.id, a.name, a.hashed_password, a.salt, a.language, a.timezone,
	COALESCE(r.name, ''), COALESCE(r.permissions, ''), a.created_at, a.session_epoch`

const accountFrom = ` FROM auth_accounts a LEFT JOIN auth_roles r ON r.id = a.role_id`

// Create inserts a new account. A taken name is reported as apperrors.ErrDuplicateName.
func (AccountRepository) Create(ctx context.Context, db interfaces.DBTX, account *schemas.Account) error {
	const op = "repositories.AccountRepository.Create"

	queryString := `INSERT INTO auth_accounts (id, name, hashed_password, salt, language, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	_, err := db.Exec(ctx, queryString, account.ID, account.Name, account.HashedPassword, account.Salt,
		account.Language, account.Timezone, account.CreatedAt)
	if err != nil {
		if constraint, ok := pgUniqueConstraint(err); ok && constraint == constraintAccountName {
			return apperrors.ConflictError{Op: op, Field: "name", Kind: apperrors.ErrDuplicateName}
		}
		return err
	}
	return nil
}

// FindByID returns the account with the given id or apperrors.ErrNotFound.
func (r AccountRepository) FindByID(ctx context.Context, db interfaces.DBTX, id string) (*schemas.Account, error) {
	queryString := "SELECT " + accountColumns + accountFrom + " WHERE a.id = $1"
	return r.scanOne(db.QueryRow(ctx, queryString, id), "repositories.AccountRepository.FindByID")
}

// FindByName returns the account with the given name or apperrors.ErrNotFound.
func (r AccountRepository) FindByName(ctx context.Context, db interfaces.DBTX, name string) (*schemas.Account, error) {
	queryString := "SELECT " + accountColumns + accountFrom + " WHERE a.name = $1"
	return r.scanOne(db.QueryRow(ctx, queryString, name), "repositories.AccountRepository.FindByName")
}

// FindByContact returns the account owning the contact (schema, uri) or apperrors.ErrNotFound.
func (r AccountRepository) FindByContact(ctx context.Context, db interfaces.DBTX, schema schemas.ContactSchema, uri string) (*schemas.Account, error) {
	queryString := "SELECT " + accountColumns + accountFrom +
		" JOIN auth_contacts c ON c.account_id = a.id WHERE c.schema = $1 AND c.uri = $2"
	return r.scanOne(db.QueryRow(ctx, queryString, string(schema), uri), "repositories.AccountRepository.FindByContact")
}

// Lock takes a row lock on the account for the rest of the transaction on db.
func (AccountRepository) Lock(ctx context.Context, db interfaces.DBTX, id string) error {
	var locked string
	err := db.QueryRow(ctx, "SELECT id FROM auth_accounts WHERE id = $1 FOR UPDATE", id).Scan(&locked)
	if err != nil {
		if isNoRows(err) {
			return apperrors.New("repositories.AccountRepository.Lock", apperrors.ErrNotFound, "account")
		}
		return err
	}
	return nil
}

// UpdatePassword stores a new password hash and salt. An empty hash forces a password change.
// Every session issued before is revoked; the returned value is the new session epoch.
func (AccountRepository) UpdatePassword(ctx context.Context, db interfaces.DBTX, id, hashedPassword, salt string, at time.Time) (int64, error) {
	queryString := `UPDATE auth_accounts SET hashed_password = $2, salt = $3, updated_at = $4, session_epoch = session_epoch + 1
		WHERE id = $1 RETURNING session_epoch`
	var epoch int64
	if err := db.QueryRow(ctx, queryString, id, hashedPassword, salt, at).Scan(&epoch); err != nil {
		if isNoRows(err) {
			return 0, apperrors.New("repositories.AccountRepository.UpdatePassword", apperrors.ErrNotFound, "account")
		}
		return 0, err
	}
	return epoch, nil
}

// RevokeSessions invalidates every session token of the account issued under epoch. A token of an
// older epoch is already revoked, so nothing changes and apperrors.ErrNotFound is returned.
func (AccountRepository) RevokeSessions(ctx context.Context, db interfaces.DBTX, id string, epoch int64) error {
	queryString := "UPDATE auth_accounts SET session_epoch = session_epoch + 1 WHERE id = $1 AND session_epoch = $2"
	tag, err := db.Exec(ctx, queryString, id, epoch)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.New("repositories.AccountRepository.RevokeSessions", apperrors.ErrNotFound, "account session")
	}
	return nil
}

// UpdateSettings changes the language and timezone preferences.
func (AccountRepository) UpdateSettings(ctx context.Context, db interfaces.DBTX, id, language, timezone string, at time.Time) error {
	queryString := "UPDATE auth_accounts SET language = $2, timezone = $3, updated_at = $4 WHERE id = $1"
	tag, err := db.Exec(ctx, queryString, id, language, timezone, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.New("repositories.AccountRepository.UpdateSettings", apperrors.ErrNotFound, "account")
	}
	return nil
}

// Delete removes the account. Contacts, tokens and notifications go with it (ON DELETE CASCADE).
func (AccountRepository) Delete(ctx context.Context, db interfaces.DBTX, id string) error {
	tag, err := db.Exec(ctx, "DELETE FROM auth_accounts WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.New("repositories.AccountRepository.Delete", apperrors.ErrNotFound, "account")
	}
	return nil
}

func (AccountRepository) scanOne(row pgx.Row, op string) (*schemas.Account, error) {
	account := &schemas.Account{}
	var roleName, permissions string
	var createdAt time.Time
	err := row.Scan(&account.ID, &account.Name, &account.HashedPassword, &account.Salt, &account.Language,
		&account.Timezone, &roleName, &permissions, &createdAt, &account.SessionEpoch)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.New(op, apperrors.ErrNotFound, "account")
		}
		return nil, err
	}
	account.Role = schemas.Role{Name: roleName, Permissions: permissions}
	account.CreatedAt = createdAt
	return account, nil
}
