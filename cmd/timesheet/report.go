package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"timesheet/backend/internal/config"
	"timesheet/backend/internal/i18n"
	"timesheet/backend/internal/report"
	"timesheet/backend/internal/repository"
	"timesheet/backend/internal/service"
	"timesheet/backend/internal/writeback"
)

var (
	reportEmail  string
	reportMonth  string
	reportLocale string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a month summary for a user",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportEmail, "email", "", "User email (required)")
	reportCmd.Flags().StringVar(&reportMonth, "month", "", "Month as YYYY-MM (default: current month)")
	reportCmd.Flags().StringVar(&reportLocale, "locale", "", "Label language, overrides LOCALE")
	_ = reportCmd.MarkFlagRequired("email")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := newLogger(cfg, os.Stderr, false)

	month := time.Now()
	if reportMonth != "" {
		parsed, err := time.Parse("2006-01", reportMonth)
		if err != nil {
			return fmt.Errorf("invalid --month %q: expected YYYY-MM", reportMonth)
		}
		month = parsed
	}
	locale := cfg.Locale
	if reportLocale != "" {
		locale = reportLocale
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	user, err := repository.NewUserRepository(database).GetByEmail(ctx, strings.ToLower(strings.TrimSpace(reportEmail)))
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("no user with email %s", reportEmail)
	}
	if err != nil {
		return err
	}

	labels, err := i18n.New(locale)
	if err != nil {
		return fmt.Errorf("load labels: %w", err)
	}

	// Read-only: nothing is scheduled, the queue only satisfies the service.
	writes := writeback.New(cfg.SaveDebounce, cfg.SaveTimeout, logger)
	timesheets := service.NewTimesheetService(
		repository.NewDayRepository(database),
		repository.NewRateRepository(database),
		writes,
		logger,
	)

	result, apiErr := timesheets.Month(ctx, user.ID, month.Year(), month.Month())
	if apiErr != nil {
		return apiErr
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Month(result, labels))
	return nil
}
