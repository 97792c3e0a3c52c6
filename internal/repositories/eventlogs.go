package repositories

import (
	"context"
	"time"

	"github.com/torao/kazzla/internal/interfaces"
	"github.com/torao/kazzla/internal/schemas"
)

// EventLogRepository appends to and pages through activity_eventlogs.
type EventLogRepository struct{}

func (EventLogRepository) Insert(ctx context.Context, db interfaces.DBTX, entry *schemas.EventLog) error {
	queryString := `INSERT INTO activity_eventlogs (account_id, level, remote_address, message, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := db.Exec(ctx, queryString, entry.AccountID, string(entry.Level), entry.RemoteAddress, entry.Message, entry.CreatedAt)
	return err
}

// List returns one page of entries, newest first.
func (EventLogRepository) List(ctx context.Context, db interfaces.DBTX, offset, limit int) ([]schemas.EventLog, error) {
	queryString := `SELECT id, account_id, level, remote_address, message, created_at FROM activity_eventlogs
		ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := db.Query(ctx, queryString, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]schemas.EventLog, 0)
	for rows.Next() {
		var entry schemas.EventLog
		var accountID *string
		var level string
		var createdAt time.Time
		if err := rows.Scan(&entry.ID, &accountID, &level, &entry.RemoteAddress, &entry.Message, &createdAt); err != nil {
			return nil, err
		}
		entry.AccountID = accountID
		entry.Level = schemas.EventLevel(level)
		entry.CreatedAt = createdAt
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (EventLogRepository) Count(ctx context.Context, db interfaces.DBTX) (int, error) {
	var count int
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM activity_eventlogs").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
