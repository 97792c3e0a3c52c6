// Package services implements the account lifecycle, the contact verification flow and the
// notification and administration use cases on top of the repositories and managers.
package services

import (
	"context"
	"time"

	"github.com/torao/kazzla/internal/apperrors"
	"github.com/torao/kazzla/internal/credentials"
	"github.com/torao/kazzla/internal/interfaces"
	"github.com/torao/kazzla/internal/managers"
	"github.com/torao/kazzla/internal/metrics"
	"github.com/torao/kazzla/internal/refdata"
	"github.com/torao/kazzla/internal/repositories"
	"github.com/torao/kazzla/internal/schemas"
	"github.com/torao/kazzla/internal/session"
	"github.com/torao/kazzla/internal/utils"
)

// Dependencies are the collaborators shared by all services.
type Dependencies struct {
	DatabaseMgr managers.DatabaseMgr
	TokenMgr    managers.TokenMgr
	MailMgr     managers.MailMgr
	Credentials *credentials.Store
	Catalog     *refdata.Catalog
	Metrics     *metrics.Metrics
	// TokenTTL is the lifetime of reset and confirmation tokens, managers.DefaultTokenTTL when zero.
	TokenTTL time.Duration
}

// Profile is an account together with its contacts.
type Profile struct {
	Account  *schemas.Account
	Contacts []schemas.Contact
}

type base struct {
	Dependencies
	accounts      repositories.AccountRepository
	contacts      repositories.ContactRepository
	events        repositories.EventLogRepository
	notifications repositories.NotificationRepository
	now           func() time.Time
}

func newBase(deps Dependencies) base {
	return base{Dependencies: deps, now: time.Now}
}

func (b *base) pool() interfaces.PgxPoolIface {
	return b.DatabaseMgr.GetPool()
}

// recordEvent appends to the event log. Failures are logged and never reach the caller.
func (b *base) recordEvent(ctx context.Context, sess session.Session, accountID *string, level schemas.EventLevel, message string) {
	entry := &schemas.EventLog{
		AccountID:     accountID,
		Level:         level,
		RemoteAddress: sess.RemoteAddress(),
		Message:       message,
		CreatedAt:     b.now(),
	}
	if err := b.events.Insert(ctx, b.pool(), entry); err != nil {
		utils.LogMessageWithFieldsAndError(ctx, "warn", "Error writing event log: "+message, err)
		return
	}
	utils.LogMessageWithFields(ctx, "info", "Event: "+message)
}

// currentAccount loads the account bound to sess. A session issued under an older epoch was revoked
// and counts as signed out. With strict set, an account that still has to choose a new password
// after a reset is refused.
func (b *base) currentAccount(ctx context.Context, sess session.Session, strict bool) (*schemas.Account, error) {
	const op = "services.currentAccount"

	id, ok := sess.AccountID()
	if !ok {
		return nil, apperrors.New(op, apperrors.ErrNotAuthenticated, "")
	}

	account, err := b.accounts.FindByID(ctx, b.pool(), id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			sess.Reset()
			return nil, apperrors.New(op, apperrors.ErrNotAuthenticated, "account no longer exists")
		}
		return nil, err
	}

	if account.SessionEpoch != sess.Epoch() {
		sess.Reset()
		return nil, apperrors.New(op, apperrors.ErrNotAuthenticated, "session revoked")
	}

	if strict && account.PasswordChangeRequired() {
		return nil, apperrors.New(op, apperrors.ErrPasswordChangeRequired, "")
	}
	return account, nil
}

// revokeSession raises the session epoch of the account bound to sess, so the token cannot be
// replayed after the cookie is gone. A session that was already revoked is left alone.
func (b *base) revokeSession(ctx context.Context, sess session.Session) {
	id, ok := sess.AccountID()
	if !ok {
		return
	}
	if err := b.accounts.RevokeSessions(ctx, b.pool(), id, sess.Epoch()); err != nil && !apperrors.IsNotFound(err) {
		utils.LogMessageWithFieldsAndError(ctx, "error", "Error revoking session", err)
	}
}

func (b *base) tokenTTL() time.Duration {
	if b.TokenTTL <= 0 {
		return managers.DefaultTokenTTL
	}
	return b.TokenTTL
}

func (b *base) notification(accountID string, code string, args ...string) *schemas.Notification {
	return &schemas.Notification{
		AccountID: accountID,
		Priority:  schemas.PriorityInformation,
		Informant: "system",
		Code:      code,
		Args:      args,
		CreatedAt: b.now(),
	}
}

func stringPtr(s string) *string {
	return &s
}
