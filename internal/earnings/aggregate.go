package earnings

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"timesheet/backend/internal/model"
)

type AllowanceTotals struct {
	Count     float64         `json:"count"`
	TotalCost decimal.Decimal `json:"totalCost"`
}

type NightStayTotals struct {
	Count     int             `json:"count"`
	TotalCost decimal.Decimal `json:"totalCost"`
}

type VacationStats struct {
	FullDays          int              `json:"fullDays"`
	HalfDays          int              `json:"halfDays"`
	TotalVacationDays float64          `json:"totalVacationDays"`
	Days              []model.DayEntry `json:"days"`
}

// YearVacationStats adds the annual cap check to VacationStats. The cap is a
// warning threshold only.
type YearVacationStats struct {
	Year int `json:"year"`
	VacationStats
	MaxVacationDays       float64 `json:"maxVacationDays"`
	RemainingVacationDays float64 `json:"remainingVacationDays"`
	OverLimit             bool    `json:"overLimit"`
}

type MonthSummary struct {
	Year                  int                 `json:"year"`
	Month                 time.Month          `json:"month"`
	Hours                 model.HourBreakdown `json:"monthlyHours"`
	Earnings              decimal.Decimal     `json:"monthlyEarnings"`
	Allowances            AllowanceTotals     `json:"monthlyAllowances"`
	NightStays            NightStayTotals     `json:"monthlyNightStays"`
	Vacation              VacationStats       `json:"vacationStats"`
	MinimumExpectedIncome decimal.Decimal     `json:"minimumExpectedIncome"`
	IncomeDelta           decimal.Decimal     `json:"incomeDelta"`
}

// SummarizeMonth folds the days of (year, month) in one pass. Days outside
// the month are skipped. Each day must carry freshly derived fields.
func SummarizeMonth(days []model.DayEntry, year int, month time.Month, cfg model.RateConfig) MonthSummary {
	summary := MonthSummary{
		Year:     year,
		Month:    month,
		Earnings: decimal.Zero,
	}
	var vacation vacationCounter

	for _, day := range days {
		if !model.InMonth(day.Date, year, month) {
			continue
		}
		summary.Hours = summary.Hours.Add(day.HourBreakdown)
		summary.Earnings = summary.Earnings.Add(day.TotalEarnings)
		if day.VacationType == model.VacationNone {
			summary.Allowances.Count += day.AllowanceCount
			if day.IsNightStay {
				summary.NightStays.Count++
			}
		}
		vacation.add(day)
	}

	summary.Allowances.TotalCost = hours(summary.Allowances.Count).Mul(cfg.AllowanceRate)
	summary.NightStays.TotalCost = decimal.NewFromInt(int64(summary.NightStays.Count)).Mul(cfg.NightStayRate)
	summary.Vacation = vacation.stats()
	summary.MinimumExpectedIncome = MinimumExpectedIncome(cfg, month)
	summary.IncomeDelta = summary.Earnings.Sub(summary.MinimumExpectedIncome)
	return summary
}

func MonthlyVacationStats(days []model.DayEntry, year int, month time.Month) VacationStats {
	var vacation vacationCounter
	for _, day := range days {
		if model.InMonth(day.Date, year, month) {
			vacation.add(day)
		}
	}
	return vacation.stats()
}

func YearlyVacationStats(days []model.DayEntry, year int, cfg model.RateConfig) YearVacationStats {
	var vacation vacationCounter
	for _, day := range days {
		if model.InYear(day.Date, year) {
			vacation.add(day)
		}
	}
	stats := vacation.stats()
	return YearVacationStats{
		Year:                  year,
		VacationStats:         stats,
		MaxVacationDays:       cfg.MaxVacationDays,
		RemainingVacationDays: cfg.MaxVacationDays - stats.TotalVacationDays,
		OverLimit:             stats.TotalVacationDays > cfg.MaxVacationDays,
	}
}

// MinimumExpectedIncome is annualSalary split over the payment installments,
// doubled in the configured extra-payment months when paid in 14.
func MinimumExpectedIncome(cfg model.RateConfig, month time.Month) decimal.Decimal {
	if cfg.PaymentType <= 0 {
		return decimal.Zero
	}
	income := cfg.AnnualSalary.Div(decimal.NewFromInt(int64(cfg.PaymentType)))
	if cfg.PaymentType == model.PaymentTypeFourteen && cfg.IsExtraPaymentMonth(month) {
		income = income.Mul(decimal.NewFromInt(2))
	}
	return income
}

type vacationCounter struct {
	full int
	half int
	days []model.DayEntry
}

func (v *vacationCounter) add(day model.DayEntry) {
	switch day.VacationType {
	case model.VacationFullDay:
		v.full++
	case model.VacationHalfDay:
		v.half++
	default:
		return
	}
	v.days = append(v.days, day)
}

func (v *vacationCounter) stats() VacationStats {
	days := append([]model.DayEntry{}, v.days...)
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return VacationStats{
		FullDays:          v.full,
		HalfDays:          v.half,
		TotalVacationDays: float64(v.full) + float64(v.half)*0.5,
		Days:              days,
	}
}
