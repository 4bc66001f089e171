package repository

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err == nil {
		return t.UTC(), nil
	}
	t, err = time.Parse(time.RFC3339, raw)
	if err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseDecimal reads a stored rate. Rates are kept as text, so a malformed
// value degrades to zero instead of failing the whole row.
func parseDecimal(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseFloat(raw string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fallback
	}
	return f
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseMonths(raw string) []time.Month {
	var months []time.Month
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 || n > 12 {
			continue
		}
		months = append(months, time.Month(n))
	}
	return months
}

func formatMonths(months []time.Month) string {
	parts := make([]string, 0, len(months))
	for _, m := range months {
		parts = append(parts, strconv.Itoa(int(m)))
	}
	return strings.Join(parts, ",")
}
