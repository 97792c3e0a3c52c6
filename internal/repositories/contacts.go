package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/torao/kazzla/internal/apperrors"
	"github.com/torao/kazzla/internal/interfaces"
	"github.com/torao/kazzla/internal/schemas"
)

// ContactRepository reads and writes auth_contacts.
type ContactRepository struct{}

const contactColumns = "id, account_id, schema, uri, confirmed, confirmed_at, created_at"

// Create inserts a contact. An address registered by any account is reported as apperrors.ErrDuplicateContact.
func (ContactRepository) Create(ctx context.Context, db interfaces.DBTX, contact *schemas.Contact) error {
	const op = "repositories.ContactRepository.Create"

	queryString := `INSERT INTO auth_contacts (id, account_id, schema, uri, confirmed, confirmed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := db.Exec(ctx, queryString, contact.ID, contact.AccountID, string(contact.Schema), contact.URI,
		contact.Confirmed, contact.ConfirmedAt, contact.CreatedAt)
	if err != nil {
		if constraint, ok := pgUniqueConstraint(err); ok && constraint == constraintContactURI {
			return apperrors.ConflictError{Op: op, Field: "contact", Kind: apperrors.ErrDuplicateContact}
		}
		if pgIsForeignKeyViolation(err) {
			return apperrors.New(op, apperrors.ErrNotFound, "account")
		}
		return err
	}
	return nil
}

// Exists reports whether the address is registered by any account.
func (ContactRepository) Exists(ctx context.Context, db interfaces.DBTX, schema schemas.ContactSchema, uri string) (bool, error) {
	var exists bool
	queryString := "SELECT EXISTS (SELECT 1 FROM auth_contacts WHERE schema = $1 AND uri = $2)"
	if err := db.QueryRow(ctx, queryString, string(schema), uri).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// FindByID returns the contact or apperrors.ErrNotFound.
func (ContactRepository) FindByID(ctx context.Context, db interfaces.DBTX, id string) (*schemas.Contact, error) {
	queryString := "SELECT " + contactColumns + " FROM auth_contacts WHERE id = $1"
	contact, err := scanContact(db.QueryRow(ctx, queryString, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.New("repositories.ContactRepository.FindByID", apperrors.ErrNotFound, "contact")
		}
		return nil, err
	}
	return contact, nil
}

func (ContactRepository) ListByAccount(ctx context.Context, db interfaces.DBTX, accountID string) ([]schemas.Contact, error) {
	queryString := "SELECT " + contactColumns + " FROM auth_contacts WHERE account_id = $1 ORDER BY created_at"
	rows, err := db.Query(ctx, queryString, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make([]schemas.Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *contact)
	}
	return contacts, rows.Err()
}

// CountByAccount returns how many contacts an account has.
func (ContactRepository) CountByAccount(ctx context.Context, db interfaces.DBTX, accountID string) (int, error) {
	var count int
	queryString := "SELECT COUNT(*) FROM auth_contacts WHERE account_id = $1"
	if err := db.QueryRow(ctx, queryString, accountID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Confirm marks the contact as confirmed at the given instant.
func (ContactRepository) Confirm(ctx context.Context, db interfaces.DBTX, id string, at time.Time) error {
	queryString := "UPDATE auth_contacts SET confirmed = TRUE, confirmed_at = $2 WHERE id = $1"
	tag, err := db.Exec(ctx, queryString, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.New("repositories.ContactRepository.Confirm", apperrors.ErrNotFound, "contact")
	}
	return nil
}

// Delete removes a contact owned by accountID.
func (ContactRepository) Delete(ctx context.Context, db interfaces.DBTX, accountID, id string) error {
	tag, err := db.Exec(ctx, "DELETE FROM auth_contacts WHERE id = $1 AND account_id = $2", id, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.New("repositories.ContactRepository.Delete", apperrors.ErrNotFound, "contact")
	}
	return nil
}

func scanContact(row pgx.Row) (*schemas.Contact, error) {
	contact := &schemas.Contact{}
	var schema string
	var confirmedAt *time.Time
	var createdAt time.Time
	if err := row.Scan(&contact.ID, &contact.AccountID, &schema, &contact.URI, &contact.Confirmed,
		&confirmedAt, &createdAt); err != nil {
		return nil, err
	}
	contact.Schema = schemas.ContactSchema(schema)
	contact.ConfirmedAt = confirmedAt
	contact.CreatedAt = createdAt
	return contact, nil
}
