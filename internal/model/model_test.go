package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesheet/backend/internal/model"
)

func TestDayKey(t *testing.T) {
	_, err := model.DayKey(time.Time{})
	assert.ErrorIs(t, err, model.ErrInvalidDate)

	// 23:30 local must stay on the local day whatever UTC says.
	loc := time.FixedZone("UTC+2", 2*60*60)
	key, err := model.DayKey(time.Date(2026, time.October, 14, 1, 30, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, "2026-10-14", key)
}

func TestParseDayKey(t *testing.T) {
	got, err := model.ParseDayKey("2026-10-14")
	require.NoError(t, err)
	assert.Equal(t, time.Wednesday, got.Weekday())

	for _, bad := range []string{"", "2026-02-30", "14/10/2026", "2026-10-14T00:00:00Z"} {
		_, err := model.ParseDayKey(bad)
		assert.ErrorIs(t, err, model.ErrInvalidDate, bad)
	}
}

func TestMonthKeyAndMembership(t *testing.T) {
	key, err := model.MonthKey(2026, time.March)
	require.NoError(t, err)
	assert.Equal(t, "2026-03", key)

	_, err = model.MonthKey(2026, 13)
	assert.ErrorIs(t, err, model.ErrInvalidDate)

	assert.True(t, model.InMonth("2026-03-31", 2026, time.March))
	assert.False(t, model.InMonth("2026-04-01", 2026, time.March))
	assert.False(t, model.InMonth("garbage", 2026, time.March))
	assert.True(t, model.InYear("2026-12-31", 2026))
}

func TestValidateAllowanceCount(t *testing.T) {
	for _, ok := range []float64{0, 0.5, 1, 2.5, 10} {
		assert.NoError(t, model.ValidateAllowanceCount(ok), ok)
	}
	for _, bad := range []float64{-0.5, 0.25, 1.3} {
		assert.ErrorIs(t, model.ValidateAllowanceCount(bad), model.ErrInvalidAllowance, bad)
	}
}

func TestParseVacationType(t *testing.T) {
	v, err := model.ParseVacationType("")
	require.NoError(t, err)
	assert.Equal(t, model.VacationNone, v)

	v, err = model.ParseVacationType("half_day")
	require.NoError(t, err)
	assert.Equal(t, model.VacationHalfDay, v)

	_, err = model.ParseVacationType("sick")
	assert.ErrorIs(t, err, model.ErrInvalidVacationType)
}

func TestDayRecordNormalize(t *testing.T) {
	rec := model.DayRecord{}
	rec.Normalize()
	require.Len(t, rec.TimeIntervals, 1)
	assert.NotEmpty(t, rec.TimeIntervals[0].ID)
	assert.Equal(t, model.VacationNone, rec.VacationType)

	clone := rec.Clone()
	clone.TimeIntervals[0].StartTime = "09:00"
	assert.Empty(t, rec.TimeIntervals[0].StartTime)
}

func TestRatePatch(t *testing.T) {
	cfg := model.DefaultRateConfig("u1", time.Now())

	var patch model.RatePatch
	require.NoError(t, json.Unmarshal([]byte(`{"annualSalary":"30000","sundayRate":21.5,"paymentType":14,"hasAllowance":false}`), &patch))
	require.NoError(t, patch.Validate())
	patch.Apply(&cfg)

	assert.True(t, decimal.RequireFromString("30000").Equal(cfg.AnnualSalary))
	assert.True(t, decimal.RequireFromString("21.5").Equal(cfg.SundayRate))
	assert.Equal(t, model.PaymentTypeFourteen, cfg.PaymentType)
	assert.False(t, cfg.HasAllowance)
	assert.True(t, cfg.HasNightStay)
	assert.Equal(t, model.DefaultDailyHourLimit, cfg.DailyHourLimit)

	bad := 13
	assert.ErrorIs(t, model.RatePatch{PaymentType: &bad}.Validate(), model.ErrInvalidRateConfig)
	assert.ErrorIs(t, model.RatePatch{ExtraPaymentMonths: []time.Month{time.June}}.Validate(), model.ErrInvalidRateConfig)
}
