package model

import (
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type VacationType string

const (
	VacationNone    VacationType = "none"
	VacationFullDay VacationType = "full_day"
	VacationHalfDay VacationType = "half_day"
)

const (
	FullDayVacationHours = 8.0
	HalfDayVacationHours = 4.0
)

var (
	ErrInvalidAllowance    = errors.New("allowance count must be a non-negative multiple of 0.5")
	ErrInvalidVacationType = errors.New("vacation type must be one of none, full_day, half_day")
)

func (v VacationType) Valid() bool {
	return v == VacationNone || v == VacationFullDay || v == VacationHalfDay
}

func ParseVacationType(raw string) (VacationType, error) {
	if raw == "" {
		return VacationNone, nil
	}
	v := VacationType(raw)
	if !v.Valid() {
		return VacationNone, ErrInvalidVacationType
	}
	return v, nil
}

type TimeInterval struct {
	ID        string `json:"id"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

func NewTimeInterval() TimeInterval {
	return TimeInterval{ID: uuid.NewString()}
}

// Complete reports whether both endpoints are filled in.
func (i TimeInterval) Complete() bool {
	return i.StartTime != "" && i.EndTime != ""
}

// DayRecord holds the raw, persisted fields of a day.
type DayRecord struct {
	TimeIntervals  []TimeInterval `json:"timeIntervals"`
	AllowanceCount float64        `json:"allowanceCount"`
	IsNightStay    bool           `json:"isNightStay"`
	VacationType   VacationType   `json:"vacationType"`
}

func DefaultDayRecord() DayRecord {
	return DayRecord{
		TimeIntervals: []TimeInterval{NewTimeInterval()},
		VacationType:  VacationNone,
	}
}

// Normalize restores the at-least-one-interval invariant, assigns ids to
// intervals that lack a unique one and defaults the vacation type.
func (r *DayRecord) Normalize() {
	if len(r.TimeIntervals) == 0 {
		r.TimeIntervals = []TimeInterval{NewTimeInterval()}
	}
	seen := make(map[string]struct{}, len(r.TimeIntervals))
	for i := range r.TimeIntervals {
		if _, dup := seen[r.TimeIntervals[i].ID]; dup || r.TimeIntervals[i].ID == "" {
			r.TimeIntervals[i].ID = uuid.NewString()
		}
		seen[r.TimeIntervals[i].ID] = struct{}{}
	}
	if r.VacationType == "" {
		r.VacationType = VacationNone
	}
}

func (r DayRecord) Clone() DayRecord {
	out := r
	out.TimeIntervals = append([]TimeInterval(nil), r.TimeIntervals...)
	return out
}

func ValidateAllowanceCount(count float64) error {
	if math.IsNaN(count) || math.IsInf(count, 0) || count < 0 {
		return ErrInvalidAllowance
	}
	if math.Trunc(count*2) != count*2 {
		return ErrInvalidAllowance
	}
	return nil
}

type HourBreakdown struct {
	Normal    float64 `json:"normal"`
	Saturday  float64 `json:"saturday"`
	Sunday    float64 `json:"sunday"`
	Extra     float64 `json:"extra"`
	NightStay float64 `json:"nightStay"`
	Total     float64 `json:"total"`
}

func (h HourBreakdown) Add(o HourBreakdown) HourBreakdown {
	return HourBreakdown{
		Normal:    h.Normal + o.Normal,
		Saturday:  h.Saturday + o.Saturday,
		Sunday:    h.Sunday + o.Sunday,
		Extra:     h.Extra + o.Extra,
		NightStay: h.NightStay + o.NightStay,
		Total:     h.Total + o.Total,
	}
}

// DayEntry is a DayRecord for a given date plus its derived fields.
// SaveError is set while the latest save of the day has failed.
type DayEntry struct {
	Date string `json:"date"`
	DayRecord
	HourBreakdown HourBreakdown   `json:"hourBreakdown"`
	TotalEarnings decimal.Decimal `json:"totalEarnings"`
	SaveError     string          `json:"saveError,omitempty"`
}

func (d DayEntry) Record() DayRecord {
	return d.DayRecord.Clone()
}
