package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/torao/kazzla/internal/apperrors"
	"github.com/torao/kazzla/internal/managers/mocks"
	"github.com/torao/kazzla/internal/refdata"
	"github.com/torao/kazzla/internal/schemas"
)

const testContactID = "c0ffee00-0000-4000-8000-000000000001"

func setupContactService(t *testing.T) (*ContactService, pgxmock.PgxPoolIface, *mocks.MockMailManager) {
	deps, poolMock, mailMgr := setupDependencies(t)
	svc := NewContactService(deps)
	svc.now = func() time.Time { return fixedNow }
	return svc, poolMock, mailMgr
}

func contactRow(accountID string, schema string, uri string) *pgxmock.Rows {
	return pgxmock.NewRows(contactColumns).
		AddRow(testContactID, accountID, schema, uri, false, nil, fixedNow.Add(-time.Hour))
}

func TestAddContact(t *testing.T) {
	svc, poolMock, _ := setupContactService(t)

	expectAccountByID(poolMock, accountRow(true, ""))
	poolMock.ExpectExec("INSERT INTO auth_contacts").
		WithArgs(pgxmock.AnyArg(), testAccountID, "tel", "+81-90-1234-5678", false, (*time.Time)(nil), fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	expectEvent(poolMock, accountIDPtr(), schemas.EventLevelInfo, "contact added: tel:+81-90-1234-5678")

	contact, err := svc.AddContact(context.Background(), signedIn(testAccountID), "", "tel:+81-90-1234-5678")
	require.NoError(t, err)

	assert.Equal(t, schemas.ContactSchemaTel, contact.Schema)
	assert.False(t, contact.Confirmed)
	assert.NoError(t, poolMock.ExpectationsWereMet())
}

func TestAddContactTaken(t *testing.T) {
	svc, poolMock, _ := setupContactService(t)

	expectAccountByID(poolMock, accountRow(true, ""))
	poolMock.ExpectExec("INSERT INTO auth_contacts").
		WithArgs(pgxmock.AnyArg(), testAccountID, "mailto", "bob@example.com", false, (*time.Time)(nil), fixedNow).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "auth_contacts_schema_uri_key"})

	_, err := svc.AddContact(context.Background(), signedIn(testAccountID), "mailto", "Bob@Example.com")

	assert.True(t, errors.Is(err, apperrors.ErrDuplicateContact), "got %v", err)
	assert.NoError(t, poolMock.ExpectationsWereMet())
}

func TestRemoveContact(t *testing.T) {
	testCases := []struct {
		name      string
		count     int
		expectErr error
	}{
		{"Removed", 2, nil},
		{"LastContact", 1, apperrors.ErrLastContact},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, poolMock, _ := setupContactService(t)

			expectAccountByID(poolMock, accountRow(true, ""))
			poolMock.ExpectBegin()
			poolMock.ExpectQuery("FOR UPDATE").WithArgs(testAccountID).
				WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(testAccountID))
			poolMock.ExpectQuery("SELECT COUNT").WithArgs(testAccountID).
				WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(tc.count))
			if tc.expectErr == nil {
				poolMock.ExpectExec("DELETE FROM auth_contacts").
					WithArgs(testContactID, testAccountID).
					WillReturnResult(pgxmock.NewResult("DELETE", 1))
				poolMock.ExpectCommit()
				expectEvent(poolMock, accountIDPtr(), schemas.EventLevelInfo, "contact removed: "+testContactID)
			} else {
				poolMock.ExpectRollback()
			}

			err := svc.RemoveContact(context.Background(), signedIn(testAccountID), testContactID)

			if tc.expectErr == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tc.expectErr), "got %v", err)
			}
			assert.NoError(t, poolMock.ExpectationsWereMet())
		})
	}
}

func TestRequestConfirmation(t *testing.T) {
	svc, poolMock, mailMgr := setupContactService(t)
	contactID := testContactID

	expectAccountByID(poolMock, accountRow(true, ""))
	poolMock.ExpectQuery("FROM auth_contacts WHERE id = \\$1").WithArgs(testContactID).
		WillReturnRows(contactRow(testAccountID, "mailto", "alice@example.com"))
	poolMock.ExpectExec("INSERT INTO auth_tokens").
		WithArgs(pgxmock.AnyArg(), testAccountID, "confirm-contact", pgxmock.AnyArg(), &contactID, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mailMgr.On("SendContactConfirmationMail", mock.Anything, "alice@example.com", "alice",
		mock.MatchedBy(func(link string) bool {
			return strings.HasPrefix(link, "https://kazzla.example/api/settings/confirm_contact?token=")
		})).Return(nil)
	expectEvent(poolMock, accountIDPtr(), schemas.EventLevelInfo, "contact confirmation requested: mailto:alice@example.com")

	err := svc.RequestConfirmation(context.Background(), signedIn(testAccountID), testContactID,
		"https://kazzla.example/api/settings/confirm_contact")

	require.NoError(t, err)
	mailMgr.AssertExpectations(t)
	assert.NoError(t, poolMock.ExpectationsWereMet())
}

func TestRequestConfirmationForeignContact(t *testing.T) {
	svc, poolMock, mailMgr := setupContactService(t)

	expectAccountByID(poolMock, accountRow(true, ""))
	poolMock.ExpectQuery("FROM auth_contacts WHERE id = \\$1").WithArgs(testContactID).
		WillReturnRows(contactRow("another-account", "mailto", "carol@example.com"))

	err := svc.RequestConfirmation(context.Background(), signedIn(testAccountID), testContactID, "https://kazzla.example/confirm")

	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "got %v", err)
	mailMgr.AssertNotCalled(t, "SendContactConfirmationMail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.NoError(t, poolMock.ExpectationsWereMet())
}

func TestRequestConfirmationTelContact(t *testing.T) {
	svc, poolMock, _ := setupContactService(t)

	expectAccountByID(poolMock, accountRow(true, ""))
	poolMock.ExpectQuery("FROM auth_contacts WHERE id = \\$1").WithArgs(testContactID).
		WillReturnRows(contactRow(testAccountID, "tel", "+81-90-1234-5678"))

	err := svc.RequestConfirmation(context.Background(), signedIn(testAccountID), testContactID, "https://kazzla.example/confirm")

	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput), "got %v", err)
	assert.NoError(t, poolMock.ExpectationsWereMet())
}

func TestFinalizeConfirmation(t *testing.T) {
	svc, poolMock, _ := setupContactService(t)
	sess := signedIn(testAccountID)
	contactID := testContactID
	now := time.Now()

	poolMock.ExpectBegin()
	poolMock.ExpectQuery("DELETE FROM auth_tokens").
		WithArgs("confirm-contact", digest("token-1")).
		WillReturnRows(pgxmock.NewRows(tokenColumns).AddRow("token-1", testAccountID, &contactID, now.Add(-time.Hour), now.Add(time.Hour)))
	expectAccountByID(poolMock, accountRow(true, ""))
	poolMock.ExpectQuery("FROM auth_contacts WHERE id = \\$1").WithArgs(testContactID).
		WillReturnRows(contactRow(testAccountID, "mailto", "alice@example.com"))
	poolMock.ExpectExec("UPDATE auth_contacts SET confirmed = TRUE").
		WithArgs(testContactID, fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	poolMock.ExpectExec("INSERT INTO user_notifications").
		WithArgs(testAccountID, schemas.PriorityInformation, "system", refdata.MsgContactConfirmed,
			[]string{"mailto:alice@example.com"}, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	poolMock.ExpectCommit()
	expectEvent(poolMock, accountIDPtr(), schemas.EventLevelInfo, "contact confirmed: mailto:alice@example.com")

	contact, err := svc.FinalizeConfirmation(context.Background(), sess, "token-1")
	require.NoError(t, err)

	assert.True(t, contact.Confirmed)
	require.NotNil(t, contact.ConfirmedAt)
	assert.Equal(t, fixedNow, *contact.ConfirmedAt)
	_, ok := sess.AccountID()
	assert.True(t, ok)
	assert.NoError(t, poolMock.ExpectationsWereMet())
}

func TestFinalizeConfirmationSessionMismatch(t *testing.T) {
	contactID := testContactID
	now := time.Now()

	testCases := []struct {
		name    string
		sess    *fakeSession
		inTx    func(poolMock pgxmock.PgxPoolIface)
		afterTx func(poolMock pgxmock.PgxPoolIface)
	}{
		{
			"OtherAccount",
			signedIn("another-account"),
			func(pgxmock.PgxPoolIface) {},
			func(poolMock pgxmock.PgxPoolIface) { expectRevokeSessions(poolMock, "another-account", 0, 1) },
		},
		{
			"NotSignedIn",
			&fakeSession{},
			func(pgxmock.PgxPoolIface) {},
			func(pgxmock.PgxPoolIface) {},
		},
		{
			// signed out since, the token of the owner was replayed
			"RevokedSession",
			signedIn(testAccountID),
			func(poolMock pgxmock.PgxPoolIface) { expectAccountByID(poolMock, accountRowAt(true, "", 1)) },
			func(poolMock pgxmock.PgxPoolIface) { expectRevokeSessions(poolMock, testAccountID, 0, 0) },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, poolMock, _ := setupContactService(t)

			poolMock.ExpectBegin()
			poolMock.ExpectQuery("DELETE FROM auth_tokens").
				WithArgs("confirm-contact", digest("token-1")).
				WillReturnRows(pgxmock.NewRows(tokenColumns).AddRow("token-1", testAccountID, &contactID, now.Add(-time.Hour), now.Add(time.Hour)))
			tc.inTx(poolMock)
			// the token survives for its owner
			poolMock.ExpectRollback()
			tc.afterTx(poolMock)
			expectEvent(poolMock, nil, schemas.EventLevelWarn, "contact confirmation with another account signed in")

			_, err := svc.FinalizeConfirmation(context.Background(), tc.sess, "token-1")

			assert.True(t, errors.Is(err, apperrors.ErrSessionMismatch), "got %v", err)
			_, ok := tc.sess.AccountID()
			assert.False(t, ok)
			assert.Equal(t, 1, tc.sess.resets)
			assert.NoError(t, poolMock.ExpectationsWereMet())
		})
	}
}

func TestFinalizeConfirmationRejectedToken(t *testing.T) {
	contactID := testContactID
	now := time.Now()

	testCases := []struct {
		name      string
		rows      *pgxmock.Rows
		expectErr error
	}{
		{"Unknown", pgxmock.NewRows(tokenColumns), apperrors.ErrTokenNotFound},
		{
			"Expired",
			pgxmock.NewRows(tokenColumns).AddRow("token-1", testAccountID, &contactID, now.Add(-25*time.Hour), now.Add(-time.Hour)),
			apperrors.ErrTokenExpired,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, poolMock, _ := setupContactService(t)
			sess := signedIn(testAccountID)

			poolMock.ExpectBegin()
			poolMock.ExpectQuery("DELETE FROM auth_tokens").
				WithArgs("confirm-contact", digest("token-1")).
				WillReturnRows(tc.rows)
			poolMock.ExpectCommit()
			expectEvent(poolMock, accountIDPtr(), schemas.EventLevelWarn, "contact confirmation token invalid or expired")

			_, err := svc.FinalizeConfirmation(context.Background(), sess, "token-1")

			assert.True(t, errors.Is(err, tc.expectErr), "got %v", err)
			_, ok := sess.AccountID()
			assert.True(t, ok)
			assert.NoError(t, poolMock.ExpectationsWereMet())
		})
	}
}
