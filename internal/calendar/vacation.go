// Package calendar renders vacation days as an iCalendar feed of all-day
// events.
package calendar

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"timesheet/backend/internal/model"
)

const (
	prodID   = "-//Timesheet//Vacations//EN"
	uidHost  = "timesheet"
	calScale = "GREGORIAN"
	method   = "PUBLISH"
)

// Labels carries the localized event and calendar titles.
type Labels struct {
	Calendar string
	FullDay  string
	HalfDay  string
}

// Vacations encodes one VEVENT per vacation day. Days without a vacation
// type are ignored. An empty input still yields a valid VCALENDAR.
func Vacations(userID string, days []model.DayEntry, labels Labels, now time.Time) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)
	cal.Props.SetText(ical.PropCalendarScale, calScale)
	cal.Props.SetText(ical.PropMethod, method)
	cal.Props.SetText("X-WR-CALNAME", labels.Calendar)

	stamp := ical.NewProp(ical.PropDateTimeStamp)
	stamp.SetDateTime(now.UTC())

	for _, day := range days {
		var summary string
		switch day.VacationType {
		case model.VacationFullDay:
			summary = labels.FullDay
		case model.VacationHalfDay:
			summary = labels.HalfDay
		default:
			continue
		}
		date, err := model.ParseDayKey(day.Date)
		if err != nil {
			return nil, err
		}

		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, fmt.Sprintf("%s-%s@%s", userID, day.Date, uidHost))
		event.Props.SetText(ical.PropSummary, summary)
		event.Props.Set(stamp)

		start := ical.NewProp(ical.PropDateTimeStart)
		start.SetDate(date)
		event.Props.Set(start)
		end := ical.NewProp(ical.PropDateTimeEnd)
		end.SetDate(date.AddDate(0, 0, 1))
		event.Props.Set(end)

		cal.Children = append(cal.Children, event.Component)
	}

	if len(cal.Children) == 0 {
		return []byte("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + prodID + "\r\nEND:VCALENDAR\r\n"), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode vacation calendar: %w", err)
	}
	return buf.Bytes(), nil
}
