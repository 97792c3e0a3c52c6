package services

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/torao/kazzla/internal/apperrors"
	"github.com/torao/kazzla/internal/refdata"
	"github.com/torao/kazzla/internal/schemas"
	"github.com/torao/kazzla/internal/session"
	"github.com/torao/kazzla/internal/utils"
)

// ContactService manages the contacts of the signed-in account and their confirmation.
type ContactService struct {
	base
}

func NewContactService(deps Dependencies) *ContactService {
	return &ContactService{base: newBase(deps)}
}

// AddContact registers another, unconfirmed address for the signed-in account.
func (s *ContactService) AddContact(ctx context.Context, sess session.Session, schema, uri string) (*schemas.Contact, error) {
	const op = "services.ContactService.AddContact"

	account, err := s.currentAccount(ctx, sess, true)
	if err != nil {
		return nil, err
	}
	parsedSchema, parsedURI := schemas.ParseContact(schema, uri)
	if err := s.validateContact(op, parsedSchema, parsedURI); err != nil {
		return nil, err
	}

	contact := &schemas.Contact{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		Schema:    parsedSchema,
		URI:       parsedURI,
		CreatedAt: s.now(),
	}
	if err := s.contacts.Create(ctx, s.pool(), contact); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, sess, &account.ID, schemas.EventLevelInfo, "contact added: "+contact.Address())
	return contact, nil
}

// RemoveContact deletes one of the signed-in account's contacts. The last contact cannot be removed.
func (s *ContactService) RemoveContact(ctx context.Context, sess session.Session, contactID string) error {
	const op = "services.ContactService.RemoveContact"

	account, err := s.currentAccount(ctx, sess, true)
	if err != nil {
		return err
	}

	err = utils.WithTx(ctx, s.pool(), func(tx pgx.Tx) error {
		// serializes concurrent removals of the same account
		if err := s.accounts.Lock(ctx, tx, account.ID); err != nil {
			return err
		}
		count, err := s.contacts.CountByAccount(ctx, tx, account.ID)
		if err != nil {
			return err
		}
		if count <= 1 {
			return apperrors.New(op, apperrors.ErrLastContact, "")
		}
		return s.contacts.Delete(ctx, tx, account.ID, contactID)
	})
	if err != nil {
		return err
	}

	s.recordEvent(ctx, sess, &account.ID, schemas.EventLevelInfo, "contact removed: "+contactID)
	return nil
}

// RequestConfirmation mails a confirmation link for one of the signed-in account's contacts.
// The link is callbackURLBase with the token appended as the "token" query parameter.
func (s *ContactService) RequestConfirmation(ctx context.Context, sess session.Session, contactID, callbackURLBase string) error {
	const op = "services.ContactService.RequestConfirmation"

	account, err := s.currentAccount(ctx, sess, true)
	if err != nil {
		return err
	}

	pool := s.pool()
	contact, err := s.contacts.FindByID(ctx, pool, contactID)
	if err != nil {
		return err
	}
	if contact.AccountID != account.ID {
		return apperrors.New(op, apperrors.ErrNotFound, "contact")
	}
	if contact.Schema != schemas.ContactSchemaMailto {
		return apperrors.New(op, apperrors.ErrInvalidInput, "only mailto contacts can be confirmed")
	}

	value, _, err := s.TokenMgr.Issue(ctx, pool, account.ID, schemas.TokenSchemeConfirmContact, stringPtr(contact.ID), s.tokenTTL())
	if err != nil {
		return err
	}

	link := callbackURLBase + "?" + utils.TokenParamKey + "=" + url.QueryEscape(value)
	if strings.Contains(callbackURLBase, "?") {
		link = callbackURLBase + "&" + utils.TokenParamKey + "=" + url.QueryEscape(value)
	}
	if err := s.MailMgr.SendContactConfirmationMail(ctx, contact.URI, account.Name, link); err != nil {
		// the token stays valid, the user can ask again
		utils.LogMessageWithFieldsAndError(ctx, "error", "Error sending contact confirmation mail", err)
	}

	s.recordEvent(ctx, sess, &account.ID, schemas.EventLevelInfo, "contact confirmation requested: "+contact.Address())
	return nil
}

// FinalizeConfirmation redeems a confirmation token and marks its contact as confirmed, in one transaction.
//
// The token has to belong to the signed-in account and the session must not be revoked. Otherwise
// nothing is changed, the session token is revoked and cleared, and apperrors.ErrSessionMismatch
// is returned.
func (s *ContactService) FinalizeConfirmation(ctx context.Context, sess session.Session, token string) (*schemas.Contact, error) {
	const op = "services.ContactService.FinalizeConfirmation"

	var contact *schemas.Contact
	var redeemErr error

	err := utils.WithTx(ctx, s.pool(), func(tx pgx.Tx) error {
		redeemed, err := s.TokenMgr.Redeem(ctx, tx, schemas.TokenSchemeConfirmContact, token)
		if apperrors.IsTicketFailure(err) {
			redeemErr = err
			return nil
		}
		if err != nil {
			return err
		}

		if id, ok := sess.AccountID(); !ok || id != redeemed.AccountID {
			return apperrors.New(op, apperrors.ErrSessionMismatch, "")
		}
		owner, err := s.accounts.FindByID(ctx, tx, redeemed.AccountID)
		if err != nil {
			return err
		}
		if owner.SessionEpoch != sess.Epoch() {
			return apperrors.New(op, apperrors.ErrSessionMismatch, "session revoked")
		}

		if redeemed.Target == nil {
			redeemErr = apperrors.New(op, apperrors.ErrTokenNotFound, "token without target")
			return nil
		}
		contact, err = s.contacts.FindByID(ctx, tx, *redeemed.Target)
		if err != nil {
			if apperrors.IsNotFound(err) {
				redeemErr = apperrors.New(op, apperrors.ErrTokenNotFound, "contact removed")
				return nil
			}
			return err
		}
		if contact.AccountID != redeemed.AccountID {
			redeemErr = apperrors.New(op, apperrors.ErrTokenNotFound, "contact changed owner")
			return nil
		}

		now := s.now()
		if err := s.contacts.Confirm(ctx, tx, contact.ID, now); err != nil {
			return err
		}
		contact.Confirmed = true
		contact.ConfirmedAt = &now
		return s.notifications.Insert(ctx, tx, s.notification(contact.AccountID, refdata.MsgContactConfirmed, contact.Address()))
	})

	if errors.Is(err, apperrors.ErrSessionMismatch) {
		s.revokeSession(ctx, sess)
		sess.Reset()
		s.recordEvent(ctx, sess, nil, schemas.EventLevelWarn, "contact confirmation with another account signed in")
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if redeemErr != nil {
		utils.LogMessageWithFieldsAndError(ctx, "info", "Contact confirmation token rejected", redeemErr)
		var accountID *string
		if id, ok := sess.AccountID(); ok {
			accountID = &id
		}
		s.recordEvent(ctx, sess, accountID, schemas.EventLevelWarn, "contact confirmation token invalid or expired")
		return nil, redeemErr
	}

	s.recordEvent(ctx, sess, &contact.AccountID, schemas.EventLevelInfo, "contact confirmed: "+contact.Address())
	return contact, nil
}
