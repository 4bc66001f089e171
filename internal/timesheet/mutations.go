package timesheet

import (
	"context"
	"errors"
	"fmt"

	"timesheet/backend/internal/earnings"
	"timesheet/backend/internal/model"
)

func (s *Session) ReplaceDay(ctx context.Context, key string, rec model.DayRecord) (model.DayEntry, error) {
	if err := model.ValidateAllowanceCount(rec.AllowanceCount); err != nil {
		return model.DayEntry{}, err
	}
	if rec.VacationType == "" {
		rec.VacationType = model.VacationNone
	}
	if !rec.VacationType.Valid() {
		return model.DayEntry{}, model.ErrInvalidVacationType
	}
	return s.mutate(ctx, key, func(current *model.DayRecord) error {
		*current = rec.Clone()
		return nil
	})
}

func (s *Session) SetTimeIntervals(ctx context.Context, key string, intervals []model.TimeInterval) (model.DayEntry, error) {
	return s.mutate(ctx, key, func(rec *model.DayRecord) error {
		rec.TimeIntervals = append([]model.TimeInterval(nil), intervals...)
		return nil
	})
}

// AddInterval appends an empty interval and returns it.
func (s *Session) AddInterval(ctx context.Context, key string) (model.DayEntry, model.TimeInterval, error) {
	added := model.NewTimeInterval()
	entry, err := s.mutate(ctx, key, func(rec *model.DayRecord) error {
		rec.TimeIntervals = append(rec.TimeIntervals, added)
		return nil
	})
	if err != nil {
		return model.DayEntry{}, model.TimeInterval{}, err
	}
	return entry, added, nil
}

// RemoveInterval deletes an interval. Removing the last one is a no-op so a
// day always keeps one slot.
func (s *Session) RemoveInterval(ctx context.Context, key, intervalID string) (model.DayEntry, error) {
	return s.mutate(ctx, key, func(rec *model.DayRecord) error {
		idx := indexOf(rec.TimeIntervals, intervalID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrIntervalNotFound, intervalID)
		}
		if len(rec.TimeIntervals) == 1 {
			return errUnchanged
		}
		rec.TimeIntervals = append(rec.TimeIntervals[:idx], rec.TimeIntervals[idx+1:]...)
		return nil
	})
}

func (s *Session) UpdateInterval(ctx context.Context, key, intervalID, startTime, endTime string) (model.DayEntry, error) {
	return s.mutate(ctx, key, func(rec *model.DayRecord) error {
		idx := indexOf(rec.TimeIntervals, intervalID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrIntervalNotFound, intervalID)
		}
		rec.TimeIntervals[idx].StartTime = startTime
		rec.TimeIntervals[idx].EndTime = endTime
		return nil
	})
}

func (s *Session) SetAllowanceCount(ctx context.Context, key string, count float64) (model.DayEntry, error) {
	if err := model.ValidateAllowanceCount(count); err != nil {
		return model.DayEntry{}, err
	}
	return s.mutate(ctx, key, func(rec *model.DayRecord) error {
		rec.AllowanceCount = count
		return nil
	})
}

func (s *Session) SetNightStay(ctx context.Context, key string, isNightStay bool) (model.DayEntry, error) {
	return s.mutate(ctx, key, func(rec *model.DayRecord) error {
		rec.IsNightStay = isNightStay
		return nil
	})
}

func (s *Session) SetVacationType(ctx context.Context, key string, vacation model.VacationType) (model.DayEntry, error) {
	if !vacation.Valid() {
		return model.DayEntry{}, model.ErrInvalidVacationType
	}
	return s.mutate(ctx, key, func(rec *model.DayRecord) error {
		rec.VacationType = vacation
		return nil
	})
}

// ClearDay resets the day to its defaults and schedules deletion of the
// stored record.
func (s *Session) ClearDay(ctx context.Context, key string) (model.DayEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := model.ParseDayKey(key); err != nil {
		return model.DayEntry{}, err
	}
	cfg, err := s.ratesLocked(ctx)
	if err != nil {
		return model.DayEntry{}, err
	}

	entry, err := earnings.Evaluate(key, model.DefaultDayRecord(), cfg)
	if err != nil {
		return model.DayEntry{}, err
	}
	s.entries[key] = entry
	s.cleared[key] = true
	s.loaded[dayScope(key)] = struct{}{}
	s.markDirtyLocked(key)
	return s.viewLocked(entry), nil
}

// errUnchanged tells mutate to return the day as is without scheduling a save.
var errUnchanged = errors.New("unchanged")

func (s *Session) mutate(ctx context.Context, key string, apply func(rec *model.DayRecord) error) (model.DayEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.dayLocked(ctx, key)
	if err != nil {
		return model.DayEntry{}, err
	}
	cfg, err := s.ratesLocked(ctx)
	if err != nil {
		return model.DayEntry{}, err
	}

	rec := entry.Record()
	if err := apply(&rec); err != nil {
		if err == errUnchanged {
			return s.viewLocked(entry), nil
		}
		return model.DayEntry{}, err
	}
	rec.Normalize()

	updated, err := earnings.Evaluate(key, rec, cfg)
	if err != nil {
		return model.DayEntry{}, err
	}
	s.entries[key] = updated
	delete(s.cleared, key)
	s.markDirtyLocked(key)
	return s.viewLocked(updated), nil
}

// persist writes the day as it stands when the save runs, so a superseded
// schedule still stores the latest edit. The day stays dirty until a save of
// its latest revision succeeds.
func (s *Session) persist(key string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		s.mu.Lock()
		entry, cached := s.entries[key]
		cleared := s.cleared[key]
		rev, dirty := s.dirty[key]
		rec := entry.Record()
		s.mu.Unlock()

		if !cached || !dirty {
			// Invalidated or already stored before the save ran.
			return nil
		}

		var err error
		if cleared {
			err = s.days.ClearDay(ctx, s.userID, key)
		} else {
			err = s.days.SaveDay(ctx, s.userID, key, rec)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			if _, still := s.dirty[key]; still {
				s.saveErrs[key] = err
			}
			return fmt.Errorf("%w: day %s for %s: %w", ErrSaveFailed, key, s.userID, err)
		}
		delete(s.saveErrs, key)
		if s.dirty[key] == rev {
			delete(s.dirty, key)
		}
		s.logger.Debug("day saved", "date", key, "cleared", cleared)
		return nil
	}
}

func indexOf(intervals []model.TimeInterval, id string) int {
	for i, interval := range intervals {
		if interval.ID == id {
			return i
		}
	}
	return -1
}
