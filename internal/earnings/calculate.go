package earnings

import (
	"math"

	"github.com/shopspring/decimal"

	"timesheet/backend/internal/model"
)

// Rates are the per-unit prices applied to a breakdown.
type Rates struct {
	Normal    decimal.Decimal
	Saturday  decimal.Decimal
	Sunday    decimal.Decimal
	Extra     decimal.Decimal
	Allowance decimal.Decimal
	NightStay decimal.Decimal
}

func RatesFrom(cfg model.RateConfig) Rates {
	return Rates{
		Normal:    cfg.NormalRate(),
		Saturday:  cfg.SaturdayRate,
		Sunday:    cfg.SundayRate,
		Extra:     cfg.ExtraRate,
		Allowance: cfg.AllowanceRate,
		NightStay: cfg.NightStayRate,
	}
}

// CalculateEarnings prices one day. Night stay is a flat amount per day: the
// hour tally in b.NightStay is informational and not multiplied.
func CalculateEarnings(b model.HourBreakdown, allowanceCount float64, rates Rates, isNightStay bool) decimal.Decimal {
	total := hours(b.Normal).Mul(rates.Normal).
		Add(hours(b.Saturday).Mul(rates.Saturday)).
		Add(hours(b.Sunday).Mul(rates.Sunday)).
		Add(hours(b.Extra).Mul(rates.Extra)).
		Add(hours(allowanceCount).Mul(rates.Allowance))
	if isNightStay {
		total = total.Add(rates.NightStay)
	}
	return total
}

// Evaluate builds the DayEntry for key with freshly derived fields.
func Evaluate(key string, rec model.DayRecord, cfg model.RateConfig) (model.DayEntry, error) {
	breakdown, err := ClassifyDay(key, rec, cfg.DailyHourLimit)
	if err != nil {
		return model.DayEntry{}, err
	}
	return model.DayEntry{
		Date:          key,
		DayRecord:     rec,
		HourBreakdown: breakdown,
		TotalEarnings: CalculateEarnings(breakdown, rec.AllowanceCount, RatesFrom(cfg), rec.IsNightStay),
	}, nil
}

// hours converts a float quantity, mapping NaN and infinities to zero.
func hours(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
