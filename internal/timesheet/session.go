// Package timesheet owns the in-memory working set of one user: the days they
// have opened, their rate configuration, and the debounced persistence of
// every edit.
package timesheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"timesheet/backend/internal/earnings"
	"timesheet/backend/internal/model"
	"timesheet/backend/internal/repository"
	"timesheet/backend/internal/writeback"
)

var (
	ErrIntervalNotFound = errors.New("time interval not found")
	ErrLoadFailed       = errors.New("could not load")
	ErrSaveFailed       = errors.New("could not save")
)

// DayStore reports a missing day as repository.ErrNotFound.
type DayStore interface {
	GetDay(ctx context.Context, userID, date string) (*model.DayRecord, error)
	ListMonth(ctx context.Context, userID string, year int, month time.Month) (map[string]model.DayRecord, error)
	ListYear(ctx context.Context, userID string, year int) (map[string]model.DayRecord, error)
	SaveDay(ctx context.Context, userID, date string, rec model.DayRecord) error
	ClearDay(ctx context.Context, userID, date string) error
}

type RateStore interface {
	GetOrCreate(ctx context.Context, userID string) (*model.RateConfig, error)
	Update(ctx context.Context, userID string, patch model.RatePatch) (*model.RateConfig, error)
}

type Scheduler interface {
	Schedule(key string, write writeback.WriteFunc)
	Cancel(key string)
}

// MonthView is a month summary plus the days it was computed from.
type MonthView struct {
	Summary earnings.MonthSummary `json:"summary"`
	Days    []model.DayEntry      `json:"days"`
	Rates   model.RateConfig      `json:"-"`
}

// Session is safe for concurrent use. Reads are served from a load-once
// cache; every mutation recomputes the day's derived fields and schedules a
// save that persists whatever the day looks like when it runs.
type Session struct {
	userID string
	days   DayStore
	rates  RateStore
	writes Scheduler
	logger *slog.Logger

	mu      sync.Mutex
	cfg     *model.RateConfig
	entries map[string]model.DayEntry
	cleared map[string]bool
	loaded  map[string]struct{}

	// dirty maps a day with an edit not yet stored to the revision of that
	// edit. saveErrs holds the last failure of a dirty day.
	rev      uint64
	dirty    map[string]uint64
	saveErrs map[string]error
}

func NewSession(userID string, days DayStore, rates RateStore, writes Scheduler, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		userID:  userID,
		days:    days,
		rates:   rates,
		writes:  writes,
		logger:  logger.With("user_id", userID),
		entries: make(map[string]model.DayEntry),
		cleared:  make(map[string]bool),
		loaded:   make(map[string]struct{}),
		dirty:    make(map[string]uint64),
		saveErrs: make(map[string]error),
	}
}

func (s *Session) UserID() string {
	return s.userID
}

func (s *Session) Rates(ctx context.Context) (model.RateConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.ratesLocked(ctx)
	if err != nil {
		return model.RateConfig{}, err
	}
	return cloneRates(cfg), nil
}

// UpdateRates stores a partial update and reprices every cached day.
func (s *Session) UpdateRates(ctx context.Context, patch model.RatePatch) (model.RateConfig, error) {
	if err := patch.Validate(); err != nil {
		return model.RateConfig{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.rates.Update(ctx, s.userID, patch)
	if err != nil {
		return model.RateConfig{}, fmt.Errorf("update rates: %w", err)
	}
	s.cfg = cfg

	for key, entry := range s.entries {
		updated, err := earnings.Evaluate(key, entry.DayRecord, *cfg)
		if err != nil {
			continue
		}
		s.entries[key] = updated
	}
	return cloneRates(*cfg), nil
}

func (s *Session) Day(ctx context.Context, key string) (model.DayEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.dayLocked(ctx, key)
	if err != nil {
		return model.DayEntry{}, err
	}
	return s.viewLocked(entry), nil
}

func (s *Session) Month(ctx context.Context, year int, month time.Month) (MonthView, error) {
	if err := model.ValidateYearMonth(year, month); err != nil {
		return MonthView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.ratesLocked(ctx)
	if err != nil {
		return MonthView{}, err
	}
	if err := s.ensureMonthLocked(ctx, year, month); err != nil {
		return MonthView{}, err
	}

	days := s.collectLocked(func(key string) bool { return model.InMonth(key, year, month) })
	return MonthView{
		Summary: earnings.SummarizeMonth(days, year, month, cfg),
		Days:    days,
		Rates:   cloneRates(cfg),
	}, nil
}

func (s *Session) YearVacations(ctx context.Context, year int) (earnings.YearVacationStats, error) {
	if err := model.ValidateYearMonth(year, time.January); err != nil {
		return earnings.YearVacationStats{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.ratesLocked(ctx)
	if err != nil {
		return earnings.YearVacationStats{}, err
	}
	if err := s.ensureYearLocked(ctx, year); err != nil {
		return earnings.YearVacationStats{}, err
	}

	days := s.collectLocked(func(key string) bool { return model.InYear(key, year) })
	return earnings.YearlyVacationStats(days, year, cfg), nil
}

// InvalidateMonth discards the cached days of a month, including edits not
// yet saved, so the next read goes back to the store.
func (s *Session) InvalidateMonth(year int, month time.Month) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropLocked(func(key string) bool { return model.InMonth(key, year, month) })
	delete(s.loaded, monthScope(year, month))
	delete(s.loaded, yearScope(year))
}

// InvalidateAll discards every cached day and the rate configuration. Days
// with edits that are not stored yet stay cached along with their pending
// saves.
func (s *Session) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropLocked(func(key string) bool {
		_, unsaved := s.dirty[key]
		return !unsaved
	})
	s.loaded = make(map[string]struct{})
	s.cfg = nil
}

// FailedSaves returns the sorted dates whose latest save failed.
func (s *Session) FailedSaves() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	dates := make([]string, 0, len(s.saveErrs))
	for key := range s.saveErrs {
		dates = append(dates, key)
	}
	sort.Strings(dates)
	return dates
}

// RetryFailedSaves schedules another save of every day whose last save
// failed.
func (s *Session) RetryFailedSaves() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.saveErrs {
		s.writes.Schedule(s.writeKey(key), s.persist(key))
	}
}

func (s *Session) ratesLocked(ctx context.Context) (model.RateConfig, error) {
	if s.cfg != nil {
		return *s.cfg, nil
	}
	cfg, err := s.rates.GetOrCreate(ctx, s.userID)
	if err != nil {
		s.logger.Error("could not load rates", "error", err)
		return model.RateConfig{}, fmt.Errorf("%w: rates: %w", ErrLoadFailed, err)
	}
	s.cfg = cfg
	return *cfg, nil
}

func (s *Session) dayLocked(ctx context.Context, key string) (model.DayEntry, error) {
	date, err := model.ParseDayKey(key)
	if err != nil {
		return model.DayEntry{}, err
	}
	if entry, ok := s.entries[key]; ok {
		return entry, nil
	}

	cfg, err := s.ratesLocked(ctx)
	if err != nil {
		return model.DayEntry{}, err
	}

	rec := model.DefaultDayRecord()
	if !s.coveredLocked(key, date) {
		stored, err := s.days.GetDay(ctx, s.userID, key)
		switch {
		case err == nil:
			rec = *stored
		case errors.Is(err, repository.ErrNotFound):
		default:
			s.logger.Error("could not load day", "date", key, "error", err)
			return model.DayEntry{}, fmt.Errorf("%w: day %s: %w", ErrLoadFailed, key, err)
		}
		s.loaded[dayScope(key)] = struct{}{}
	}

	rec.Normalize()
	entry, err := earnings.Evaluate(key, rec, cfg)
	if err != nil {
		return model.DayEntry{}, err
	}
	s.entries[key] = entry
	return entry, nil
}

func (s *Session) ensureMonthLocked(ctx context.Context, year int, month time.Month) error {
	if _, ok := s.loaded[monthScope(year, month)]; ok {
		return nil
	}
	if _, ok := s.loaded[yearScope(year)]; ok {
		return nil
	}
	records, err := s.days.ListMonth(ctx, s.userID, year, month)
	if err != nil {
		s.logger.Error("could not load month", "year", year, "month", int(month), "error", err)
		return fmt.Errorf("%w: month %04d-%02d: %w", ErrLoadFailed, year, int(month), err)
	}
	if err := s.mergeLocked(ctx, records); err != nil {
		return err
	}
	s.loaded[monthScope(year, month)] = struct{}{}
	return nil
}

func (s *Session) ensureYearLocked(ctx context.Context, year int) error {
	if _, ok := s.loaded[yearScope(year)]; ok {
		return nil
	}
	records, err := s.days.ListYear(ctx, s.userID, year)
	if err != nil {
		s.logger.Error("could not load year", "year", year, "error", err)
		return fmt.Errorf("%w: year %04d: %w", ErrLoadFailed, year, err)
	}
	if err := s.mergeLocked(ctx, records); err != nil {
		return err
	}
	s.loaded[yearScope(year)] = struct{}{}
	return nil
}

// mergeLocked adds loaded records to the cache. Days already cached keep
// their local state.
func (s *Session) mergeLocked(ctx context.Context, records map[string]model.DayRecord) error {
	cfg, err := s.ratesLocked(ctx)
	if err != nil {
		return err
	}
	for key, rec := range records {
		if _, ok := s.entries[key]; ok || s.cleared[key] {
			continue
		}
		rec.Normalize()
		entry, err := earnings.Evaluate(key, rec, cfg)
		if err != nil {
			s.logger.Warn("skipping stored day with bad key", "date", key, "error", err)
			continue
		}
		s.entries[key] = entry
	}
	return nil
}

func (s *Session) coveredLocked(key string, date time.Time) bool {
	for _, scope := range []string{dayScope(key), monthScope(date.Year(), date.Month()), yearScope(date.Year())} {
		if _, ok := s.loaded[scope]; ok {
			return true
		}
	}
	return false
}

func (s *Session) collectLocked(match func(key string) bool) []model.DayEntry {
	days := make([]model.DayEntry, 0)
	for key, entry := range s.entries {
		if match(key) {
			days = append(days, s.viewLocked(entry))
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

func (s *Session) dropLocked(match func(key string) bool) {
	for key := range s.entries {
		if match(key) {
			delete(s.entries, key)
			delete(s.loaded, dayScope(key))
			delete(s.dirty, key)
			delete(s.saveErrs, key)
			s.writes.Cancel(s.writeKey(key))
		}
	}
	for key := range s.cleared {
		if match(key) {
			delete(s.cleared, key)
		}
	}
}

// markDirtyLocked records an edit of key and schedules its save.
func (s *Session) markDirtyLocked(key string) {
	s.rev++
	s.dirty[key] = s.rev
	s.writes.Schedule(s.writeKey(key), s.persist(key))
}

func (s *Session) viewLocked(entry model.DayEntry) model.DayEntry {
	entry = copyEntry(entry)
	entry.SaveError = ""
	if _, failed := s.saveErrs[entry.Date]; failed {
		entry.SaveError = ErrSaveFailed.Error()
	}
	return entry
}

func (s *Session) writeKey(key string) string {
	return s.userID + "/" + key
}

func dayScope(key string) string {
	return "day:" + key
}

func monthScope(year int, month time.Month) string {
	return fmt.Sprintf("month:%04d-%02d", year, int(month))
}

func yearScope(year int) string {
	return fmt.Sprintf("year:%04d", year)
}

func copyEntry(entry model.DayEntry) model.DayEntry {
	entry.DayRecord = entry.Record()
	return entry
}

func cloneRates(cfg model.RateConfig) model.RateConfig {
	cfg.ExtraPaymentMonths = append([]time.Month(nil), cfg.ExtraPaymentMonths...)
	return cfg
}
