package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"timesheet/backend/internal/earnings"
	apperrors "timesheet/backend/internal/errors"
	"timesheet/backend/internal/model"
	"timesheet/backend/internal/timesheet"
	"timesheet/backend/internal/writeback"
)

// TimesheetService keeps one Session per user over a shared write-back queue.
type TimesheetService struct {
	days   timesheet.DayStore
	rates  timesheet.RateStore
	writes *writeback.Queue
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*timesheet.Session
}

func NewTimesheetService(days timesheet.DayStore, rates timesheet.RateStore, writes *writeback.Queue, logger *slog.Logger) *TimesheetService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimesheetService{
		days:     days,
		rates:    rates,
		writes:   writes,
		logger:   logger,
		sessions: make(map[string]*timesheet.Session),
	}
}

// RatesView is the stored configuration plus the derived hourly rate.
type RatesView struct {
	model.RateConfig
	NormalRate decimal.Decimal `json:"normalRate"`
}

// MonthResult is the dashboard payload for a month. Allowance and night-stay
// totals are left out when the user has the feature turned off.
type MonthResult struct {
	Year                  int                       `json:"year"`
	Month                 time.Month                `json:"month"`
	Hours                 model.HourBreakdown       `json:"monthlyHours"`
	Earnings              decimal.Decimal           `json:"monthlyEarnings"`
	Allowances            *earnings.AllowanceTotals `json:"monthlyAllowances,omitempty"`
	NightStays            *earnings.NightStayTotals `json:"monthlyNightStays,omitempty"`
	Vacation              earnings.VacationStats    `json:"vacationStats"`
	MinimumExpectedIncome decimal.Decimal           `json:"minimumExpectedIncome"`
	IncomeDelta           decimal.Decimal           `json:"incomeDelta"`
	Days                  []model.DayEntry          `json:"days"`
	UnsavedDays           []string                  `json:"unsavedDays,omitempty"`
}

func (s *TimesheetService) session(userID string) *timesheet.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = timesheet.NewSession(userID, s.days, s.rates, s.writes, s.logger)
		s.sessions[userID] = sess
	}
	return sess
}

func (s *TimesheetService) Rates(ctx context.Context, userID string) (*RatesView, *apperrors.APIError) {
	cfg, err := s.session(userID).Rates(ctx)
	if err != nil {
		return nil, s.toAPIError(err)
	}
	return ratesView(cfg), nil
}

func (s *TimesheetService) UpdateRates(ctx context.Context, userID string, patch model.RatePatch) (*RatesView, *apperrors.APIError) {
	cfg, err := s.session(userID).UpdateRates(ctx, patch)
	if err != nil {
		return nil, s.toAPIError(err)
	}
	return ratesView(cfg), nil
}

func (s *TimesheetService) Day(ctx context.Context, userID, date string) (*model.DayEntry, *apperrors.APIError) {
	return s.dayResult(s.session(userID).Day(ctx, date))
}

func (s *TimesheetService) ReplaceDay(ctx context.Context, userID, date string, rec model.DayRecord) (*model.DayEntry, *apperrors.APIError) {
	return s.dayResult(s.session(userID).ReplaceDay(ctx, date, rec))
}

func (s *TimesheetService) ClearDay(ctx context.Context, userID, date string) (*model.DayEntry, *apperrors.APIError) {
	return s.dayResult(s.session(userID).ClearDay(ctx, date))
}

func (s *TimesheetService) AddInterval(ctx context.Context, userID, date string) (*model.DayEntry, *model.TimeInterval, *apperrors.APIError) {
	entry, added, err := s.session(userID).AddInterval(ctx, date)
	if err != nil {
		return nil, nil, s.toAPIError(err)
	}
	return &entry, &added, nil
}

func (s *TimesheetService) UpdateInterval(ctx context.Context, userID, date, intervalID, startTime, endTime string) (*model.DayEntry, *apperrors.APIError) {
	return s.dayResult(s.session(userID).UpdateInterval(ctx, date, intervalID, startTime, endTime))
}

func (s *TimesheetService) RemoveInterval(ctx context.Context, userID, date, intervalID string) (*model.DayEntry, *apperrors.APIError) {
	return s.dayResult(s.session(userID).RemoveInterval(ctx, date, intervalID))
}

func (s *TimesheetService) SetAllowanceCount(ctx context.Context, userID, date string, count float64) (*model.DayEntry, *apperrors.APIError) {
	return s.dayResult(s.session(userID).SetAllowanceCount(ctx, date, count))
}

func (s *TimesheetService) SetNightStay(ctx context.Context, userID, date string, isNightStay bool) (*model.DayEntry, *apperrors.APIError) {
	return s.dayResult(s.session(userID).SetNightStay(ctx, date, isNightStay))
}

func (s *TimesheetService) SetVacationType(ctx context.Context, userID, date, raw string) (*model.DayEntry, *apperrors.APIError) {
	vacation, err := model.ParseVacationType(raw)
	if err != nil {
		return nil, s.toAPIError(err)
	}
	return s.dayResult(s.session(userID).SetVacationType(ctx, date, vacation))
}

func (s *TimesheetService) Month(ctx context.Context, userID string, year int, month time.Month) (*MonthResult, *apperrors.APIError) {
	view, err := s.session(userID).Month(ctx, year, month)
	if err != nil {
		return nil, s.toAPIError(err)
	}
	return monthResult(view), nil
}

// RefreshMonth drops the cached month, unsaved edits included, and reloads it.
func (s *TimesheetService) RefreshMonth(ctx context.Context, userID string, year int, month time.Month) (*MonthResult, *apperrors.APIError) {
	if err := model.ValidateYearMonth(year, month); err != nil {
		return nil, s.toAPIError(err)
	}
	sess := s.session(userID)
	sess.InvalidateMonth(year, month)
	view, err := sess.Month(ctx, year, month)
	if err != nil {
		return nil, s.toAPIError(err)
	}
	return monthResult(view), nil
}

func (s *TimesheetService) YearVacations(ctx context.Context, userID string, year int) (*earnings.YearVacationStats, *apperrors.APIError) {
	stats, err := s.session(userID).YearVacations(ctx, year)
	if err != nil {
		return nil, s.toAPIError(err)
	}
	return &stats, nil
}

// Sync retries failed saves, waits for every pending save, then drops the
// caller's cache so the next read reflects the store. Days that still could
// not be saved stay cached and are reported as save_failed.
func (s *TimesheetService) Sync(ctx context.Context, userID string) *apperrors.APIError {
	sess := s.session(userID)
	sess.RetryFailedSaves()
	if err := s.writes.Flush(ctx); err != nil {
		return s.toAPIError(err)
	}
	sess.InvalidateAll()

	if failed := sess.FailedSaves(); len(failed) > 0 {
		s.logger.Warn("sync left unsaved days", "user_id", userID, "dates", failed)
		return apperrors.SaveFailed("", map[string][]string{"dates": failed})
	}
	return nil
}

// Flush waits for every pending save across all users.
func (s *TimesheetService) Flush(ctx context.Context) error {
	return s.writes.Flush(ctx)
}

func (s *TimesheetService) dayResult(entry model.DayEntry, err error) (*model.DayEntry, *apperrors.APIError) {
	if err != nil {
		return nil, s.toAPIError(err)
	}
	return &entry, nil
}

func (s *TimesheetService) toAPIError(err error) *apperrors.APIError {
	switch {
	case errors.Is(err, model.ErrInvalidDate):
		return apperrors.BadRequest("invalid_date", "date must be YYYY-MM-DD")
	case errors.Is(err, model.ErrInvalidAllowance):
		return apperrors.BadRequest("invalid_allowance", model.ErrInvalidAllowance.Error())
	case errors.Is(err, model.ErrInvalidVacationType):
		return apperrors.BadRequest("invalid_vacation_type", model.ErrInvalidVacationType.Error())
	case errors.Is(err, model.ErrInvalidRateConfig):
		return apperrors.BadRequest("invalid_rates", err.Error())
	case errors.Is(err, timesheet.ErrIntervalNotFound):
		return apperrors.NotFound("interval_not_found", "time interval not found")
	case errors.Is(err, timesheet.ErrLoadFailed):
		return apperrors.LoadFailed("")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.Timeout("")
	default:
		s.logger.Error("timesheet operation failed", "error", err)
		return apperrors.Internal("")
	}
}

func ratesView(cfg model.RateConfig) *RatesView {
	return &RatesView{RateConfig: cfg, NormalRate: cfg.NormalRate()}
}

func monthResult(view timesheet.MonthView) *MonthResult {
	summary := view.Summary
	result := &MonthResult{
		Year:                  summary.Year,
		Month:                 summary.Month,
		Hours:                 summary.Hours,
		Earnings:              summary.Earnings,
		Vacation:              summary.Vacation,
		MinimumExpectedIncome: summary.MinimumExpectedIncome,
		IncomeDelta:           summary.IncomeDelta,
		Days:                  view.Days,
	}
	for _, day := range view.Days {
		if day.SaveError != "" {
			result.UnsavedDays = append(result.UnsavedDays, day.Date)
		}
	}
	if view.Rates.HasAllowance {
		allowances := summary.Allowances
		result.Allowances = &allowances
	}
	if view.Rates.HasNightStay {
		nightStays := summary.NightStays
		result.NightStays = &nightStays
	}
	return result
}
