package main

import (
	"github.com/spf13/cobra"

	"github.com/torao/kazzla/internal"
	"github.com/torao/kazzla/internal/config"
	"github.com/torao/kazzla/internal/migrations"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply or inspect the database schema migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(migrations.Up), string(migrations.Down), string(migrations.Status)},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		return internal.Migrate(cfg, migrations.Direction(args[0]))
	},
}
