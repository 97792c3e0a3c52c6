package services

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/torao/kazzla/internal/apperrors"
	"github.com/torao/kazzla/internal/refdata"
	"github.com/torao/kazzla/internal/schemas"
	"github.com/torao/kazzla/internal/session"
	"github.com/torao/kazzla/internal/utils"
)

// maxNameLength is the maximum number of characters of an account name.
const maxNameLength = 15

// SignUpInput carries the fields of a sign-up request.
type SignUpInput struct {
	Name     string
	Schema   string
	URI      string
	Password string
	Language string
	Timezone string
}

// AccountService implements sign-up, sign-in, sign-out, password reset, password change,
// withdrawal and the account settings.
type AccountService struct {
	base
}

func NewAccountService(deps Dependencies) *AccountService {
	return &AccountService{base: newBase(deps)}
}

// SignUp creates the account and its first contact in one transaction and binds the session to it.
func (s *AccountService) SignUp(ctx context.Context, sess session.Session, in SignUpInput) (*Profile, error) {
	const op = "services.AccountService.SignUp"

	name := strings.TrimSpace(in.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, apperrors.New(op, apperrors.ErrInvalidInput, "name")
	}
	schema, uri := schemas.ParseContact(in.Schema, in.URI)
	if err := s.validateContact(op, schema, uri); err != nil {
		return nil, err
	}
	if err := s.validateSettings(op, in.Language, in.Timezone); err != nil {
		return nil, err
	}

	now := s.now()
	account := &schemas.Account{
		ID:        uuid.NewString(),
		Name:      name,
		Language:  in.Language,
		Timezone:  in.Timezone,
		CreatedAt: now,
	}
	if err := s.Credentials.SetPassword(account, in.Password); err != nil {
		return nil, err
	}
	contact := schemas.Contact{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		Schema:    schema,
		URI:       uri,
		CreatedAt: now,
	}

	err := utils.WithTx(ctx, s.pool(), func(tx pgx.Tx) error {
		exists, err := s.contacts.Exists(ctx, tx, schema, uri)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.ConflictError{Op: op, Field: "contact", Kind: apperrors.ErrDuplicateContact}
		}
		if err := s.accounts.Create(ctx, tx, account); err != nil {
			return err
		}
		if err := s.contacts.Create(ctx, tx, &contact); err != nil {
			return err
		}
		return s.notifications.Insert(ctx, tx, s.notification(account.ID, refdata.MsgSignedUp, account.Name))
	})
	if err != nil {
		return nil, err
	}

	if err := sess.Bind(account.ID, account.SessionEpoch); err != nil {
		return nil, err
	}
	s.recordEvent(ctx, sess, &account.ID, schemas.EventLevelInfo, "sign-up success")
	return &Profile{Account: account, Contacts: []schemas.Contact{contact}}, nil
}

// SignIn authenticates by account name or by contact address. Every failure is reported as
// apperrors.ErrInvalidCredentials and leaves the session unbound.
func (s *AccountService) SignIn(ctx context.Context, sess session.Session, identifier, password string) (*schemas.Account, error) {
	const op = "services.AccountService.SignIn"

	identifier = strings.TrimSpace(identifier)
	pool := s.pool()
	candidates := 0

	var matched *schemas.Account
	if identifier != "" {
		account, err := s.accounts.FindByName(ctx, pool, identifier)
		switch {
		case err == nil:
			candidates++
			if s.Credentials.Verify(account, password) {
				matched = account
			}
		case !apperrors.IsNotFound(err):
			return nil, err
		}

		if matched == nil {
			schema, uri := schemas.ParseContact("", identifier)
			account, err := s.accounts.FindByContact(ctx, pool, schema, uri)
			switch {
			case err == nil:
				candidates++
				if s.Credentials.Verify(account, password) {
					matched = account
				}
			case !apperrors.IsNotFound(err):
				return nil, err
			}
		}
	}
	if candidates == 0 {
		s.Credentials.VerifyDummy(password)
	}

	if matched == nil {
		sess.Reset()
		s.countSignIn("failure")
		s.recordEvent(ctx, sess, nil, schemas.EventLevelWarn, "sign-in failure")
		return nil, apperrors.New(op, apperrors.ErrInvalidCredentials, "")
	}

	if err := sess.Bind(matched.ID, matched.SessionEpoch); err != nil {
		return nil, err
	}
	s.countSignIn("success")
	s.recordEvent(ctx, sess, &matched.ID, schemas.EventLevelInfo, "sign-in success")
	return matched, nil
}

// SignOut revokes the session token and unbinds the session. Other sessions of the account
// issued under the same epoch end with it.
func (s *AccountService) SignOut(ctx context.Context, sess session.Session) {
	if id, ok := sess.AccountID(); ok {
		s.revokeSession(ctx, sess)
		s.recordEvent(ctx, sess, &id, schemas.EventLevelInfo, "sign-out success")
	}
	sess.Reset()
}

// RequestPasswordReset mails a reset link when contactURI belongs to an account. It behaves the same
// whether or not the address is known, so failures are only logged.
func (s *AccountService) RequestPasswordReset(ctx context.Context, sess session.Session, contactURI, baseURL string) {
	schema, uri := schemas.ParseContact("", contactURI)
	pool := s.pool()

	account, err := s.accounts.FindByContact(ctx, pool, schema, uri)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			utils.LogMessageWithFieldsAndError(ctx, "error", "Error looking up contact for password reset", err)
			return
		}
		s.recordEvent(ctx, sess, nil, schemas.EventLevelWarn, "password reset requested for unknown contact")
		return
	}
	if schema != schemas.ContactSchemaMailto {
		utils.LogMessageWithFields(ctx, "info", "No mail transport for contact schema "+string(schema))
		return
	}

	value, _, err := s.TokenMgr.Issue(ctx, pool, account.ID, schemas.TokenSchemeResetPassword, nil, s.tokenTTL())
	if err != nil {
		utils.LogMessageWithFieldsAndError(ctx, "error", "Error issuing password reset token", err)
		return
	}

	link := strings.TrimRight(baseURL, "/") + "/api/auth/signin?" + utils.TicketParamKey + "=" + url.QueryEscape(value)
	if err := s.MailMgr.SendPasswordResetMail(ctx, uri, account.Name, link); err != nil {
		utils.LogMessageWithFieldsAndError(ctx, "error", "Error sending password reset mail", err)
		return
	}
	s.recordEvent(ctx, sess, &account.ID, schemas.EventLevelInfo, "password reset requested")
}

// RedeemPasswordReset consumes a reset ticket, clears the password of its account and signs it in.
// The account then has to choose a new password through ChangePassword.
func (s *AccountService) RedeemPasswordReset(ctx context.Context, sess session.Session, ticket string) (*schemas.Account, error) {
	var account *schemas.Account
	var redeemErr error

	err := utils.WithTx(ctx, s.pool(), func(tx pgx.Tx) error {
		token, err := s.TokenMgr.Redeem(ctx, tx, schemas.TokenSchemeResetPassword, ticket)
		if apperrors.IsTicketFailure(err) {
			// commit so that an expired ticket is gone for good
			redeemErr = err
			return nil
		}
		if err != nil {
			return err
		}

		account, err = s.accounts.FindByID(ctx, tx, token.AccountID)
		if err != nil {
			return err
		}
		epoch, err := s.accounts.UpdatePassword(ctx, tx, account.ID, "", account.Salt, s.now())
		if err != nil {
			return err
		}
		account.HashedPassword = ""
		account.SessionEpoch = epoch
		return nil
	})
	if err != nil {
		return nil, err
	}

	if redeemErr != nil {
		utils.LogMessageWithFieldsAndError(ctx, "info", "Password reset ticket rejected", redeemErr)
		s.recordEvent(ctx, sess, nil, schemas.EventLevelWarn, "password reset ticket invalid or expired")
		return nil, redeemErr
	}

	if err := sess.Bind(account.ID, account.SessionEpoch); err != nil {
		return nil, err
	}
	s.recordEvent(ctx, sess, &account.ID, schemas.EventLevelInfo, "sign-in success to reset password")
	return account, nil
}

// ChangePassword sets a new password for the signed-in account. It is the one settings operation
// open to an account that has to change its password.
func (s *AccountService) ChangePassword(ctx context.Context, sess session.Session, newPassword string) error {
	account, err := s.currentAccount(ctx, sess, false)
	if err != nil {
		return err
	}
	return s.storePassword(ctx, sess, account, newPassword)
}

// UpdatePassword replaces the password after checking the current one.
func (s *AccountService) UpdatePassword(ctx context.Context, sess session.Session, current, new1, new2 string) error {
	const op = "services.AccountService.UpdatePassword"

	account, err := s.currentAccount(ctx, sess, true)
	if err != nil {
		return err
	}
	if !s.Credentials.Verify(account, current) {
		s.recordEvent(ctx, sess, &account.ID, schemas.EventLevelWarn, "password change with wrong current password")
		return apperrors.New(op, apperrors.ErrInvalidCredentials, "current password")
	}
	if new1 != new2 {
		return apperrors.New(op, apperrors.ErrInvalidInput, "new passwords differ")
	}
	return s.storePassword(ctx, sess, account, new1)
}

// storePassword replaces the password and revokes every other session of the account. The current
// session is reissued under the new epoch.
func (s *AccountService) storePassword(ctx context.Context, sess session.Session, account *schemas.Account, plaintext string) error {
	if err := s.Credentials.SetPassword(account, plaintext); err != nil {
		return err
	}

	err := utils.WithTx(ctx, s.pool(), func(tx pgx.Tx) error {
		epoch, err := s.accounts.UpdatePassword(ctx, tx, account.ID, account.HashedPassword, account.Salt, s.now())
		if err != nil {
			return err
		}
		account.SessionEpoch = epoch
		return s.notifications.Insert(ctx, tx, s.notification(account.ID, refdata.MsgPasswordChanged))
	})
	if err != nil {
		return err
	}

	if err := sess.Bind(account.ID, account.SessionEpoch); err != nil {
		return err
	}
	s.recordEvent(ctx, sess, &account.ID, schemas.EventLevelInfo, "password changed")
	return nil
}

// Withdraw deletes the signed-in account with its contacts, tokens and notifications.
func (s *AccountService) Withdraw(ctx context.Context, sess session.Session, confirmed bool) error {
	const op = "services.AccountService.Withdraw"

	if _, ok := sess.AccountID(); !ok {
		return apperrors.New(op, apperrors.ErrNotAuthenticated, "")
	}
	if !confirmed {
		return apperrors.New(op, apperrors.ErrConfirmationRequired, "")
	}

	account, err := s.currentAccount(ctx, sess, false)
	if err != nil {
		return err
	}
	id := account.ID
	if err := s.accounts.Delete(ctx, s.pool(), id); err != nil {
		if apperrors.IsNotFound(err) {
			sess.Reset()
			return apperrors.New(op, apperrors.ErrNotAuthenticated, "account no longer exists")
		}
		return err
	}

	// the row is gone, so the entry cannot reference it
	s.recordEvent(ctx, sess, nil, schemas.EventLevelInfo, "withdrawal success: "+id)
	sess.Reset()
	return nil
}

// Account returns the signed-in account with its contacts.
func (s *AccountService) Account(ctx context.Context, sess session.Session) (*Profile, error) {
	account, err := s.currentAccount(ctx, sess, false)
	if err != nil {
		return nil, err
	}
	contacts, err := s.contacts.ListByAccount(ctx, s.pool(), account.ID)
	if err != nil {
		return nil, err
	}
	return &Profile{Account: account, Contacts: contacts}, nil
}

// UpdateSettings changes the preferred language and timezone.
func (s *AccountService) UpdateSettings(ctx context.Context, sess session.Session, language, timezone string) (*schemas.Account, error) {
	const op = "services.AccountService.UpdateSettings"

	account, err := s.currentAccount(ctx, sess, true)
	if err != nil {
		return nil, err
	}
	if err := s.validateSettings(op, language, timezone); err != nil {
		return nil, err
	}

	if err := s.accounts.UpdateSettings(ctx, s.pool(), account.ID, language, timezone, s.now()); err != nil {
		return nil, err
	}
	account.Language = language
	account.Timezone = timezone
	return account, nil
}

func (s *AccountService) validateSettings(op, language, timezone string) error {
	if _, ok := s.Catalog.Language(language); !ok {
		return apperrors.New(op, apperrors.ErrInvalidInput, "language")
	}
	if _, ok := s.Catalog.Timezone(timezone); !ok {
		return apperrors.New(op, apperrors.ErrInvalidInput, "timezone")
	}
	return nil
}

func (s *AccountService) countSignIn(outcome string) {
	if s.Metrics != nil {
		s.Metrics.SignIns.WithLabelValues(outcome).Inc()
	}
}

func (b *base) validateContact(op string, schema schemas.ContactSchema, uri string) error {
	if schema != schemas.ContactSchemaMailto && schema != schemas.ContactSchemaTel {
		return apperrors.New(op, apperrors.ErrInvalidInput, "contact schema")
	}
	if uri == "" || !utils.GetValidator().ValidContact(schema, uri) {
		return apperrors.New(op, apperrors.ErrInvalidInput, "contact uri")
	}
	return nil
}
