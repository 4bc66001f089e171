package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"timesheet/backend/internal/model"
)

type DayRepository struct {
	db *sql.DB
}

func NewDayRepository(db *sql.DB) *DayRepository {
	return &DayRepository{db: db}
}

func (r *DayRepository) GetDay(ctx context.Context, userID, date string) (*model.DayRecord, error) {
	days, err := r.listRange(ctx, userID, date, date)
	if err != nil {
		return nil, err
	}
	rec, ok := days[date]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (r *DayRepository) ListMonth(ctx context.Context, userID string, year int, month time.Month) (map[string]model.DayRecord, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return r.listRange(ctx, userID, first.Format(model.DayKeyLayout), last.Format(model.DayKeyLayout))
}

func (r *DayRepository) ListYear(ctx context.Context, userID string, year int) (map[string]model.DayRecord, error) {
	return r.listRange(ctx, userID, fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year))
}

// SaveDay replaces the stored day, intervals included.
func (r *DayRepository) SaveDay(ctx context.Context, userID, date string, rec model.DayRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO day_entries (user_id, date, allowance_count, is_night_stay, vacation_type, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, date) DO UPDATE SET
		     allowance_count = excluded.allowance_count,
		     is_night_stay = excluded.is_night_stay,
		     vacation_type = excluded.vacation_type,
		     updated_at = excluded.updated_at`,
		userID,
		date,
		rec.AllowanceCount,
		rec.IsNightStay,
		string(rec.VacationType),
		formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("upsert day %s: %w", date, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM time_intervals WHERE user_id = ? AND date = ?`, userID, date); err != nil {
		return fmt.Errorf("delete intervals %s: %w", date, err)
	}

	for position, interval := range rec.TimeIntervals {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO time_intervals (id, user_id, date, position, start_time, end_time)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			interval.ID,
			userID,
			date,
			position,
			interval.StartTime,
			interval.EndTime,
		); err != nil {
			return fmt.Errorf("insert interval %s: %w", interval.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit day %s: %w", date, err)
	}
	return nil
}

// ClearDay deletes the day and its intervals. Clearing a missing day is not
// an error.
func (r *DayRepository) ClearDay(ctx context.Context, userID, date string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM time_intervals WHERE user_id = ? AND date = ?`, userID, date); err != nil {
		return fmt.Errorf("clear intervals %s: %w", date, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM day_entries WHERE user_id = ? AND date = ?`, userID, date); err != nil {
		return fmt.Errorf("clear day %s: %w", date, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear %s: %w", date, err)
	}
	return nil
}

func (r *DayRepository) listRange(ctx context.Context, userID, from, to string) (map[string]model.DayRecord, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT date, allowance_count, is_night_stay, vacation_type
		 FROM day_entries
		 WHERE user_id = ? AND date BETWEEN ? AND ?`,
		userID,
		from,
		to,
	)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	defer rows.Close()

	days := make(map[string]model.DayRecord)
	for rows.Next() {
		var date, vacation string
		var rec model.DayRecord
		if err := rows.Scan(&date, &rec.AllowanceCount, &rec.IsNightStay, &vacation); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		rec.VacationType = model.VacationType(vacation)
		if !rec.VacationType.Valid() {
			rec.VacationType = model.VacationNone
		}
		days[date] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate days: %w", err)
	}

	if err := r.attachIntervals(ctx, userID, from, to, days); err != nil {
		return nil, err
	}

	for date, rec := range days {
		rec.Normalize()
		days[date] = rec
	}
	return days, nil
}

func (r *DayRepository) attachIntervals(ctx context.Context, userID, from, to string, days map[string]model.DayRecord) error {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT date, id, start_time, end_time
		 FROM time_intervals
		 WHERE user_id = ? AND date BETWEEN ? AND ?
		 ORDER BY date, position`,
		userID,
		from,
		to,
	)
	if err != nil {
		return fmt.Errorf("list intervals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var date string
		var interval model.TimeInterval
		if err := rows.Scan(&date, &interval.ID, &interval.StartTime, &interval.EndTime); err != nil {
			return fmt.Errorf("scan interval: %w", err)
		}
		rec, ok := days[date]
		if !ok {
			continue
		}
		rec.TimeIntervals = append(rec.TimeIntervals, interval)
		days[date] = rec
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate intervals: %w", err)
	}
	return nil
}
