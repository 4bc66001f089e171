package main

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"timesheet/backend/internal/config"
	"timesheet/backend/internal/db"
)

var rootCmd = &cobra.Command{
	Use:   "timesheet",
	Short: "Work-hours and earnings tracker",
	Long: `timesheet records daily work intervals, classifies the hours into
normal, weekend and overtime buckets, and prices them with the user's rates.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reportCmd)
}

func newLogger(cfg config.Config, w io.Writer, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openDatabase opens the configured sqlite file and brings its schema up to date.
func openDatabase(cfg config.Config) (*sql.DB, error) {
	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return database, nil
}
