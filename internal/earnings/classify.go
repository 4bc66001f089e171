// Package earnings turns the raw intervals of a day into categorized hour
// buckets, prices them, and folds days into monthly and yearly summaries.
// Everything here is pure: no I/O, no shared state.
package earnings

import (
	"math"
	"strconv"
	"strings"
	"time"

	"timesheet/backend/internal/model"
)

const minutesPerDay = 24 * 60

// Classify splits the worked time of a day into hour buckets.
//
// Full-day vacation short-circuits with a fixed 8h credit. Half-day vacation
// seeds 4h and lets interval hours accumulate on top. Hours beyond
// dailyHourLimit in the normal, saturday or sunday bucket move to extra.
// Total is the sum before that move and never includes the night-stay tally.
func Classify(date time.Time, intervals []model.TimeInterval, isNightStay bool, vacation model.VacationType, dailyHourLimit float64) model.HourBreakdown {
	var b model.HourBreakdown
	bucket := dayBucket(&b, date.Weekday())

	switch vacation {
	case model.VacationFullDay:
		*bucket = model.FullDayVacationHours
		b.Total = model.FullDayVacationHours
		return b
	case model.VacationHalfDay:
		*bucket = model.HalfDayVacationHours
	}

	totalHours := *bucket
	for _, interval := range intervals {
		if !interval.Complete() {
			continue
		}
		hours := IntervalHours(interval.StartTime, interval.EndTime)
		*bucket += hours
		if isNightStay {
			b.NightStay += hours
		}
		totalHours += hours
	}

	for _, capped := range []*float64{&b.Normal, &b.Saturday, &b.Sunday} {
		if *capped > dailyHourLimit {
			b.Extra += *capped - dailyHourLimit
			*capped = dailyHourLimit
		}
	}

	b.Total = totalHours
	return sanitize(b)
}

// ClassifyDay is Classify keyed by a YYYY-MM-DD day key.
func ClassifyDay(key string, rec model.DayRecord, dailyHourLimit float64) (model.HourBreakdown, error) {
	date, err := model.ParseDayKey(key)
	if err != nil {
		return model.HourBreakdown{}, err
	}
	return Classify(date, rec.TimeIntervals, rec.IsNightStay, rec.VacationType, dailyHourLimit), nil
}

// IntervalHours returns the length of start-end in hours. An end before the
// start is an overnight shift. Malformed clock strings yield NaN.
func IntervalHours(start, end string) float64 {
	from := parseClock(start)
	to := parseClock(end)
	if to < from {
		to += minutesPerDay
	}
	return (to - from) / 60
}

func dayBucket(b *model.HourBreakdown, weekday time.Weekday) *float64 {
	switch weekday {
	case time.Sunday:
		return &b.Sunday
	case time.Saturday:
		return &b.Saturday
	default:
		return &b.Normal
	}
}

// parseClock reads HH:MM (seconds are tolerated and ignored) as minutes past
// midnight.
func parseClock(raw string) float64 {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return math.NaN()
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 24 {
		return math.NaN()
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return math.NaN()
	}
	if hours == 24 && minutes != 0 {
		return math.NaN()
	}
	return float64(hours*60 + minutes)
}

func sanitize(b model.HourBreakdown) model.HourBreakdown {
	for _, v := range []*float64{&b.Normal, &b.Saturday, &b.Sunday, &b.Extra, &b.NightStay, &b.Total} {
		if math.IsNaN(*v) {
			*v = 0
		}
	}
	return b
}
