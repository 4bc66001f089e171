package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentTypeTwelve   = 12
	PaymentTypeFourteen = 14
)

const (
	DefaultDailyHourLimit  = 8.0
	DefaultWeeklyHours     = 40
	DefaultMaxVacationDays = 22.0
)

var DefaultExtraPaymentMonths = []time.Month{time.June, time.December}

var ErrInvalidRateConfig = errors.New("invalid rate configuration")

var weeksPerYear = decimal.NewFromInt(52)

type RateConfig struct {
	UserID             string          `json:"-"`
	AnnualSalary       decimal.Decimal `json:"annualSalary"`
	WeeklyHours        decimal.Decimal `json:"weeklyHours"`
	ExtraRate          decimal.Decimal `json:"extraRate"`
	SaturdayRate       decimal.Decimal `json:"saturdayRate"`
	SundayRate         decimal.Decimal `json:"sundayRate"`
	NightStayRate      decimal.Decimal `json:"nightStayRate"`
	AllowanceRate      decimal.Decimal `json:"allowanceRate"`
	DailyHourLimit     float64         `json:"dailyHourLimit"`
	HasAllowance       bool            `json:"hasAllowance"`
	HasNightStay       bool            `json:"hasNightStay"`
	MaxVacationDays    float64         `json:"maxVacationDays"`
	PaymentType        int             `json:"paymentType"`
	ExtraPaymentMonths []time.Month    `json:"extraPaymentMonths"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

func DefaultRateConfig(userID string, now time.Time) RateConfig {
	return RateConfig{
		UserID:             userID,
		AnnualSalary:       decimal.Zero,
		WeeklyHours:        decimal.NewFromInt(DefaultWeeklyHours),
		ExtraRate:          decimal.Zero,
		SaturdayRate:       decimal.Zero,
		SundayRate:         decimal.Zero,
		NightStayRate:      decimal.Zero,
		AllowanceRate:      decimal.Zero,
		DailyHourLimit:     DefaultDailyHourLimit,
		HasAllowance:       true,
		HasNightStay:       true,
		MaxVacationDays:    DefaultMaxVacationDays,
		PaymentType:        PaymentTypeTwelve,
		ExtraPaymentMonths: append([]time.Month(nil), DefaultExtraPaymentMonths...),
		UpdatedAt:          now,
	}
}

// NormalRate derives the base hourly rate as annualSalary / (weeklyHours * 52).
// A zero or negative weekly figure yields a zero rate.
func (c RateConfig) NormalRate() decimal.Decimal {
	if !c.WeeklyHours.IsPositive() {
		return decimal.Zero
	}
	return c.AnnualSalary.Div(c.WeeklyHours.Mul(weeksPerYear))
}

func (c RateConfig) IsExtraPaymentMonth(month time.Month) bool {
	for _, m := range c.ExtraPaymentMonths {
		if m == month {
			return true
		}
	}
	return false
}

// RatePatch carries a partial update; nil fields are left untouched.
type RatePatch struct {
	AnnualSalary       *decimal.Decimal `json:"annualSalary"`
	WeeklyHours        *decimal.Decimal `json:"weeklyHours"`
	ExtraRate          *decimal.Decimal `json:"extraRate"`
	SaturdayRate       *decimal.Decimal `json:"saturdayRate"`
	SundayRate         *decimal.Decimal `json:"sundayRate"`
	NightStayRate      *decimal.Decimal `json:"nightStayRate"`
	AllowanceRate      *decimal.Decimal `json:"allowanceRate"`
	DailyHourLimit     *float64         `json:"dailyHourLimit"`
	HasAllowance       *bool            `json:"hasAllowance"`
	HasNightStay       *bool            `json:"hasNightStay"`
	MaxVacationDays    *float64         `json:"maxVacationDays"`
	PaymentType        *int             `json:"paymentType"`
	ExtraPaymentMonths []time.Month     `json:"extraPaymentMonths"`
}

func (p RatePatch) Validate() error {
	if p.PaymentType != nil && *p.PaymentType != PaymentTypeTwelve && *p.PaymentType != PaymentTypeFourteen {
		return fmt.Errorf("%w: paymentType must be 12 or 14", ErrInvalidRateConfig)
	}
	if p.DailyHourLimit != nil && *p.DailyHourLimit < 0 {
		return fmt.Errorf("%w: dailyHourLimit must not be negative", ErrInvalidRateConfig)
	}
	if p.MaxVacationDays != nil && *p.MaxVacationDays < 0 {
		return fmt.Errorf("%w: maxVacationDays must not be negative", ErrInvalidRateConfig)
	}
	if p.ExtraPaymentMonths != nil {
		if len(p.ExtraPaymentMonths) != 2 {
			return fmt.Errorf("%w: extraPaymentMonths must name two months", ErrInvalidRateConfig)
		}
		for _, m := range p.ExtraPaymentMonths {
			if m < time.January || m > time.December {
				return fmt.Errorf("%w: extraPaymentMonths out of range", ErrInvalidRateConfig)
			}
		}
	}
	return nil
}

func (p RatePatch) Apply(c *RateConfig) {
	setDecimal(&c.AnnualSalary, p.AnnualSalary)
	setDecimal(&c.WeeklyHours, p.WeeklyHours)
	setDecimal(&c.ExtraRate, p.ExtraRate)
	setDecimal(&c.SaturdayRate, p.SaturdayRate)
	setDecimal(&c.SundayRate, p.SundayRate)
	setDecimal(&c.NightStayRate, p.NightStayRate)
	setDecimal(&c.AllowanceRate, p.AllowanceRate)
	if p.DailyHourLimit != nil {
		c.DailyHourLimit = *p.DailyHourLimit
	}
	if p.HasAllowance != nil {
		c.HasAllowance = *p.HasAllowance
	}
	if p.HasNightStay != nil {
		c.HasNightStay = *p.HasNightStay
	}
	if p.MaxVacationDays != nil {
		c.MaxVacationDays = *p.MaxVacationDays
	}
	if p.PaymentType != nil {
		c.PaymentType = *p.PaymentType
	}
	if p.ExtraPaymentMonths != nil {
		c.ExtraPaymentMonths = append([]time.Month(nil), p.ExtraPaymentMonths...)
	}
}

func setDecimal(dst *decimal.Decimal, src *decimal.Decimal) {
	if src != nil {
		*dst = *src
	}
}
