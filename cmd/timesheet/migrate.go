package main

import (
	"os"

	"github.com/spf13/cobra"

	"timesheet/backend/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logger := newLogger(cfg, os.Stderr, false)

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		logger.Info("migrations applied successfully", "db_path", cfg.DBPath)
		return nil
	},
}
