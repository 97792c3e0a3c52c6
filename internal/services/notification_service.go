package services

import (
	"context"

	"github.com/torao/kazzla/internal/apperrors"
	"github.com/torao/kazzla/internal/schemas"
	"github.com/torao/kazzla/internal/session"
)

// RenderedNotification is a notification with its message resolved in the account's language.
type RenderedNotification struct {
	schemas.Notification
	Message string
}

// NotificationService pages through and acknowledges the notifications of the signed-in account.
type NotificationService struct {
	base
}

func NewNotificationService(deps Dependencies) *NotificationService {
	return &NotificationService{base: newBase(deps)}
}

// List returns one page of notifications and the total number the account has.
func (s *NotificationService) List(ctx context.Context, sess session.Session, offset, limit int) ([]RenderedNotification, int, error) {
	account, err := s.currentAccount(ctx, sess, true)
	if err != nil {
		return nil, 0, err
	}

	pool := s.pool()
	notifications, err := s.notifications.ListByAccount(ctx, pool, account.ID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.notifications.CountByAccount(ctx, pool, account.ID)
	if err != nil {
		return nil, 0, err
	}

	rendered := make([]RenderedNotification, 0, len(notifications))
	for _, n := range notifications {
		rendered = append(rendered, RenderedNotification{
			Notification: n,
			Message:      s.Catalog.Message(account.Language, n.Code, n.Args...),
		})
	}
	return rendered, total, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, sess session.Session) (int, error) {
	account, err := s.currentAccount(ctx, sess, true)
	if err != nil {
		return 0, err
	}
	return s.notifications.CountUnread(ctx, s.pool(), account.ID)
}

// MarkRead acknowledges the given notifications and returns how many changed state.
func (s *NotificationService) MarkRead(ctx context.Context, sess session.Session, ids []int64) (int64, error) {
	const op = "services.NotificationService.MarkRead"

	account, err := s.currentAccount(ctx, sess, true)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, apperrors.New(op, apperrors.ErrInvalidInput, "no notification ids")
	}
	return s.notifications.MarkRead(ctx, s.pool(), account.ID, ids, s.now())
}
