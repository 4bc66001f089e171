package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"time"

	"timesheet/backend/internal/calendar"
	apperrors "timesheet/backend/internal/errors"
	"timesheet/backend/internal/i18n"
)

// ExportService renders a user's data as CSV and iCalendar files with
// localized headings.
type ExportService struct {
	timesheets *TimesheetService
	labels     *i18n.Translator
	now        func() time.Time
}

func NewExportService(timesheets *TimesheetService, labels *i18n.Translator) *ExportService {
	return &ExportService{timesheets: timesheets, labels: labels, now: time.Now}
}

// MonthCSV writes one row per stored or edited day of the month. Numbers are
// written in a machine-readable form regardless of locale.
func (s *ExportService) MonthCSV(ctx context.Context, userID string, year int, month time.Month) ([]byte, *apperrors.APIError) {
	result, apiErr := s.timesheets.Month(ctx, userID, year, month)
	if apiErr != nil {
		return nil, apiErr
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{
		s.labels.T(i18n.MsgDate),
		s.labels.T(i18n.MsgNormal),
		s.labels.T(i18n.MsgSaturday),
		s.labels.T(i18n.MsgSunday),
		s.labels.T(i18n.MsgExtra),
		s.labels.T(i18n.MsgNightStayHours),
		s.labels.T(i18n.MsgTotalHours),
		s.labels.T(i18n.MsgAllowances),
		s.labels.T(i18n.MsgNightStays),
		s.labels.T(i18n.MsgVacation),
		s.labels.T(i18n.MsgEarnings),
	}
	if err := w.Write(header); err != nil {
		return nil, apperrors.Internal("failed to write csv")
	}

	for _, day := range result.Days {
		b := day.HourBreakdown
		nightStay := "0"
		if day.IsNightStay {
			nightStay = "1"
		}
		row := []string{
			day.Date,
			formatHours(b.Normal),
			formatHours(b.Saturday),
			formatHours(b.Sunday),
			formatHours(b.Extra),
			formatHours(b.NightStay),
			formatHours(b.Total),
			formatHours(day.AllowanceCount),
			nightStay,
			string(day.VacationType),
			day.TotalEarnings.StringFixed(2),
		}
		if err := w.Write(row); err != nil {
			return nil, apperrors.Internal("failed to write csv")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperrors.Internal("failed to write csv")
	}
	return buf.Bytes(), nil
}

// VacationsICS renders the year's vacation days as all-day events.
func (s *ExportService) VacationsICS(ctx context.Context, userID string, year int) ([]byte, *apperrors.APIError) {
	stats, apiErr := s.timesheets.YearVacations(ctx, userID, year)
	if apiErr != nil {
		return nil, apiErr
	}

	data, err := calendar.Vacations(userID, stats.Days, calendar.Labels{
		Calendar: s.labels.T(i18n.MsgVacationCalendar),
		FullDay:  s.labels.T(i18n.MsgVacationFullDay),
		HalfDay:  s.labels.T(i18n.MsgVacationHalfDay),
	}, s.now())
	if err != nil {
		return nil, apperrors.Internal("failed to encode calendar")
	}
	return data, nil
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', 2, 64)
}

