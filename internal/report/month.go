// Package report renders a month summary for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"timesheet/backend/internal/i18n"
	"timesheet/backend/internal/service"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6C63FF"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	numberStyle   = cellStyle.Align(lipgloss.Right)
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#414868"))
	positiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ECC71"))
	negativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C"))
	labelStyle    = lipgloss.NewStyle().Width(26)
)

// Month lays out one row per day followed by the monthly totals.
func Month(result *service.MonthResult, labels *i18n.Translator) string {
	rows := make([][]string, 0, len(result.Days))
	for _, day := range result.Days {
		b := day.HourBreakdown
		rows = append(rows, []string{
			day.Date,
			labels.Hours(b.Normal),
			labels.Hours(b.Saturday),
			labels.Hours(b.Sunday),
			labels.Hours(b.Extra),
			labels.Hours(b.Total),
			labels.Money(day.TotalEarnings),
		})
	}

	days := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(
			labels.T(i18n.MsgDate),
			labels.T(i18n.MsgNormal),
			labels.T(i18n.MsgSaturday),
			labels.T(i18n.MsgSunday),
			labels.T(i18n.MsgExtra),
			labels.T(i18n.MsgTotalHours),
			labels.T(i18n.MsgEarnings),
		).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		})

	var b strings.Builder
	title := fmt.Sprintf("%s %04d-%02d", labels.T(i18n.MsgMonthReport), result.Year, int(result.Month))
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(days.String())
	b.WriteString("\n")

	line := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	line(labels.T(i18n.MsgTotalHours), labels.Hours(result.Hours.Total))
	line(labels.T(i18n.MsgNightStayHours), labels.Hours(result.Hours.NightStay))
	if result.Allowances != nil {
		line(labels.T(i18n.MsgAllowances), labels.Hours(result.Allowances.Count)+" / "+labels.Money(result.Allowances.TotalCost))
	}
	if result.NightStays != nil {
		line(labels.T(i18n.MsgNightStays), fmt.Sprintf("%d / %s", result.NightStays.Count, labels.Money(result.NightStays.TotalCost)))
	}
	line(labels.T(i18n.MsgVacation), labels.Hours(result.Vacation.TotalVacationDays))
	line(labels.T(i18n.MsgEarnings), labels.Money(result.Earnings))
	line(labels.T(i18n.MsgMinimumIncome), labels.Money(result.MinimumExpectedIncome))

	delta := numberStyleFor(result.IncomeDelta.IsNegative()).Render(labels.Money(result.IncomeDelta))
	line(labels.T(i18n.MsgIncomeDelta), delta)
	return b.String()
}

func numberStyleFor(negative bool) lipgloss.Style {
	if negative {
		return negativeStyle
	}
	return positiveStyle
}
