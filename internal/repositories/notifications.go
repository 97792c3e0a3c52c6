package repositories

import (
	"context"
	"time"

	"github.com/torao/kazzla/internal/interfaces"
	"github.com/torao/kazzla/internal/schemas"
)

// NotificationRepository reads and writes user_notifications.
type NotificationRepository struct{}

func (NotificationRepository) Insert(ctx context.Context, db interfaces.DBTX, n *schemas.Notification) error {
	args := n.Args
	if args == nil {
		args = []string{}
	}
	queryString := `INSERT INTO user_notifications (account_id, priority, informant, code, args, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := db.Exec(ctx, queryString, n.AccountID, n.Priority, n.Informant, n.Code, args, n.CreatedAt)
	return err
}

// ListByAccount returns one page of an account's notifications: pinned first, then by priority and age.
func (NotificationRepository) ListByAccount(ctx context.Context, db interfaces.DBTX, accountID string, offset, limit int) ([]schemas.Notification, error) {
	queryString := `SELECT id, priority, informant, code, args, read_at, pinned_at, created_at FROM user_notifications
		WHERE account_id = $1
		ORDER BY pinned_at IS NULL, priority, created_at DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := db.Query(ctx, queryString, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]schemas.Notification, 0)
	for rows.Next() {
		n := schemas.Notification{AccountID: accountID}
		var args []string
		var readAt, pinnedAt *time.Time
		var createdAt time.Time
		if err := rows.Scan(&n.ID, &n.Priority, &n.Informant, &n.Code, &args, &readAt, &pinnedAt, &createdAt); err != nil {
			return nil, err
		}
		n.Args = args
		n.ReadAt = readAt
		n.PinnedAt = pinnedAt
		n.CreatedAt = createdAt
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (NotificationRepository) CountByAccount(ctx context.Context, db interfaces.DBTX, accountID string) (int, error) {
	var count int
	queryString := "SELECT COUNT(*) FROM user_notifications WHERE account_id = $1"
	if err := db.QueryRow(ctx, queryString, accountID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (NotificationRepository) CountUnread(ctx context.Context, db interfaces.DBTX, accountID string) (int, error) {
	var count int
	queryString := "SELECT COUNT(*) FROM user_notifications WHERE account_id = $1 AND read_at IS NULL"
	if err := db.QueryRow(ctx, queryString, accountID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead sets read_at on the given notifications of accountID that are still unread.
// Ids belonging to other accounts are ignored.
func (NotificationRepository) MarkRead(ctx context.Context, db interfaces.DBTX, accountID string, ids []int64, at time.Time) (int64, error) {
	queryString := `UPDATE user_notifications SET read_at = $3
		WHERE account_id = $1 AND id = ANY($2) AND read_at IS NULL`
	tag, err := db.Exec(ctx, queryString, accountID, ids, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
