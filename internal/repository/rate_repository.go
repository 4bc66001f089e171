package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"timesheet/backend/internal/model"
)

type RateRepository struct {
	db *sql.DB
}

func NewRateRepository(db *sql.DB) *RateRepository {
	return &RateRepository{db: db}
}

const rateColumns = `user_id, annual_salary, weekly_hours, extra_rate, saturday_rate, sunday_rate,
	        night_stay_rate, allowance_rate, daily_hour_limit, has_allowance, has_night_stay,
	        max_vacation_days, payment_type, extra_payment_months, updated_at`

func (r *RateRepository) Create(ctx context.Context, cfg *model.RateConfig) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO rate_configs (`+rateColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rateArgs(cfg)...,
	)
	if err != nil {
		return fmt.Errorf("create rate config: %w", err)
	}
	return nil
}

func (r *RateRepository) Get(ctx context.Context, userID string) (*model.RateConfig, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+rateColumns+` FROM rate_configs WHERE user_id = ?`, userID)
	cfg, err := scanRateConfig(row)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetOrCreate returns the stored config, creating one with defaults on first
// access.
func (r *RateRepository) GetOrCreate(ctx context.Context, userID string) (*model.RateConfig, error) {
	cfg, err := r.Get(ctx, userID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	defaults := model.DefaultRateConfig(userID, time.Now().UTC())
	if _, err := r.db.ExecContext(
		ctx,
		`INSERT INTO rate_configs (`+rateColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		rateArgs(&defaults)...,
	); err != nil {
		return nil, fmt.Errorf("create default rate config: %w", err)
	}
	return r.Get(ctx, userID)
}

// Update applies patch to the stored config; only the supplied fields change.
func (r *RateRepository) Update(ctx context.Context, userID string, patch model.RatePatch) (*model.RateConfig, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+rateColumns+` FROM rate_configs WHERE user_id = ?`, userID)
	cfg, err := scanRateConfig(row)
	if err != nil {
		return nil, err
	}

	patch.Apply(cfg)
	cfg.UpdatedAt = time.Now().UTC()

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE rate_configs
		 SET annual_salary = ?,
		     weekly_hours = ?,
		     extra_rate = ?,
		     saturday_rate = ?,
		     sunday_rate = ?,
		     night_stay_rate = ?,
		     allowance_rate = ?,
		     daily_hour_limit = ?,
		     has_allowance = ?,
		     has_night_stay = ?,
		     max_vacation_days = ?,
		     payment_type = ?,
		     extra_payment_months = ?,
		     updated_at = ?
		 WHERE user_id = ?`,
		append(rateArgs(cfg)[1:], cfg.UserID)...,
	); err != nil {
		return nil, fmt.Errorf("update rate config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit rate config: %w", err)
	}
	return cfg, nil
}

func rateArgs(cfg *model.RateConfig) []interface{} {
	return []interface{}{
		cfg.UserID,
		cfg.AnnualSalary.String(),
		cfg.WeeklyHours.String(),
		cfg.ExtraRate.String(),
		cfg.SaturdayRate.String(),
		cfg.SundayRate.String(),
		cfg.NightStayRate.String(),
		cfg.AllowanceRate.String(),
		formatFloat(cfg.DailyHourLimit),
		cfg.HasAllowance,
		cfg.HasNightStay,
		formatFloat(cfg.MaxVacationDays),
		cfg.PaymentType,
		formatMonths(cfg.ExtraPaymentMonths),
		formatTime(cfg.UpdatedAt),
	}
}

func scanRateConfig(s scanner) (*model.RateConfig, error) {
	var cfg model.RateConfig
	var annualSalary, weeklyHours, extraRate, saturdayRate, sundayRate string
	var nightStayRate, allowanceRate, dailyHourLimit, maxVacationDays string
	var months, updatedAt string
	err := s.Scan(
		&cfg.UserID,
		&annualSalary,
		&weeklyHours,
		&extraRate,
		&saturdayRate,
		&sundayRate,
		&nightStayRate,
		&allowanceRate,
		&dailyHourLimit,
		&cfg.HasAllowance,
		&cfg.HasNightStay,
		&maxVacationDays,
		&cfg.PaymentType,
		&months,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan rate config: %w", err)
	}

	cfg.AnnualSalary = parseDecimal(annualSalary)
	cfg.WeeklyHours = parseDecimal(weeklyHours)
	cfg.ExtraRate = parseDecimal(extraRate)
	cfg.SaturdayRate = parseDecimal(saturdayRate)
	cfg.SundayRate = parseDecimal(sundayRate)
	cfg.NightStayRate = parseDecimal(nightStayRate)
	cfg.AllowanceRate = parseDecimal(allowanceRate)
	cfg.DailyHourLimit = parseFloat(dailyHourLimit, model.DefaultDailyHourLimit)
	cfg.MaxVacationDays = parseFloat(maxVacationDays, model.DefaultMaxVacationDays)
	cfg.ExtraPaymentMonths = parseMonths(months)

	parsedUpdatedAt, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse rate config updated_at: %w", err)
	}
	cfg.UpdatedAt = parsedUpdatedAt
	return &cfg, nil
}
