package main

import (
	"github.com/spf13/cobra"

	"github.com/torao/kazzla/internal"
	"github.com/torao/kazzla/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		return internal.Serve(cfg)
	},
}
