package model

import (
	"errors"
	"fmt"
	"time"
)

const (
	DayKeyLayout   = "2006-01-02"
	MonthKeyLayout = "2006-01"
)

var ErrInvalidDate = errors.New("invalid date")

// DayKey formats t as YYYY-MM-DD in t's own location. Callers pass local
// times so that a shift ending after midnight UTC still lands on the local day.
func DayKey(t time.Time) (string, error) {
	if t.IsZero() {
		return "", ErrInvalidDate
	}
	return t.Format(DayKeyLayout), nil
}

func ParseDayKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DayKeyLayout, key, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, key)
	}
	return t, nil
}

func MonthKey(year int, month time.Month) (string, error) {
	if err := ValidateYearMonth(year, month); err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d-%02d", year, int(month)), nil
}

func ValidateYearMonth(year int, month time.Month) error {
	if year < 1 || year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidDate, year)
	}
	if month < time.January || month > time.December {
		return fmt.Errorf("%w: month %d", ErrInvalidDate, int(month))
	}
	return nil
}

// InMonth reports whether key belongs to the given calendar month.
func InMonth(key string, year int, month time.Month) bool {
	t, err := ParseDayKey(key)
	if err != nil {
		return false
	}
	return t.Year() == year && t.Month() == month
}

func InYear(key string, year int) bool {
	t, err := ParseDayKey(key)
	if err != nil {
		return false
	}
	return t.Year() == year
}
