// Package migrations embeds the SQL schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var Migrations embed.FS

// Direction selects what Run does.
type Direction string

const (
	Up     Direction = "up"
	Down   Direction = "down"
	Status Direction = "status"
)

// Run opens dsn through the pgx stdlib driver and applies the embedded migrations.
func Run(ctx context.Context, dsn string, direction Direction) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("db open error: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	switch direction {
	case Up:
		return goose.UpContext(ctx, db, ".")
	case Down:
		return goose.DownContext(ctx, db, ".")
	case Status:
		return goose.StatusContext(ctx, db, ".")
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
}
