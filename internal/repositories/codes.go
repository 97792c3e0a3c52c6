package repositories

import (
	"context"

	"github.com/torao/kazzla/internal/interfaces"
	"github.com/torao/kazzla/internal/schemas"
)

// CodeRepository loads the reference tables code_languages, code_timezones and code_messages.
type CodeRepository struct{}

func (CodeRepository) Languages(ctx context.Context, db interfaces.DBTX) ([]schemas.Language, error) {
	rows, err := db.Query(ctx, "SELECT code, name FROM code_languages ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	languages := make([]schemas.Language, 0)
	for rows.Next() {
		var l schemas.Language
		if err := rows.Scan(&l.Code, &l.Name); err != nil {
			return nil, err
		}
		languages = append(languages, l)
	}
	return languages, rows.Err()
}

func (CodeRepository) Timezones(ctx context.Context, db interfaces.DBTX) ([]schemas.Timezone, error) {
	rows, err := db.Query(ctx, "SELECT code, name, utc_offset, daylight_saving FROM code_timezones ORDER BY utc_offset, code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	timezones := make([]schemas.Timezone, 0)
	for rows.Next() {
		var tz schemas.Timezone
		if err := rows.Scan(&tz.Code, &tz.Name, &tz.UTCOffset, &tz.DaylightSaving); err != nil {
			return nil, err
		}
		timezones = append(timezones, tz)
	}
	return timezones, rows.Err()
}

func (CodeRepository) Messages(ctx context.Context, db interfaces.DBTX) ([]schemas.Message, error) {
	rows, err := db.Query(ctx, "SELECT language, country, code, content FROM code_messages")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]schemas.Message, 0)
	for rows.Next() {
		var m schemas.Message
		if err := rows.Scan(&m.Language, &m.Country, &m.Code, &m.Content); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
