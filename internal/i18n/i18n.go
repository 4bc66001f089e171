// Package i18n resolves the user-facing labels of hour categories and
// summary fields, and prints amounts with locale-aware separators.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed locales/*.json
var localeFS embed.FS

const (
	MsgDate             = "Date"
	MsgNormal           = "HoursNormal"
	MsgSaturday         = "HoursSaturday"
	MsgSunday           = "HoursSunday"
	MsgExtra            = "HoursExtra"
	MsgNightStayHours   = "HoursNightStay"
	MsgTotalHours       = "HoursTotal"
	MsgAllowances       = "Allowances"
	MsgNightStays       = "NightStays"
	MsgEarnings         = "Earnings"
	MsgMinimumIncome    = "MinimumIncome"
	MsgIncomeDelta      = "IncomeDelta"
	MsgVacation         = "Vacation"
	MsgVacationFullDay  = "VacationFullDay"
	MsgVacationHalfDay  = "VacationHalfDay"
	MsgVacationCalendar = "VacationCalendar"
	MsgMonthReport      = "MonthReport"
)

type Translator struct {
	localizer *goi18n.Localizer
	printer   *message.Printer
	tag       language.Tag
}

// New loads the embedded catalogues. Unknown languages fall back to Spanish.
func New(lang string) (*Translator, error) {
	bundle := goi18n.NewBundle(language.Spanish)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	tags := []language.Tag{language.Spanish}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			continue
		}
		file, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name)
		if err != nil {
			return nil, fmt.Errorf("load locale %s: %w", name, err)
		}
		if file.Tag != language.Spanish {
			tags = append(tags, file.Tag)
		}
	}

	tag, _, _ := language.NewMatcher(tags).Match(language.Make(lang))
	base, _ := tag.Base()
	tag = language.Make(base.String())
	return &Translator{
		localizer: goi18n.NewLocalizer(bundle, tag.String()),
		printer:   message.NewPrinter(tag),
		tag:       tag,
	}, nil
}

func (t *Translator) Language() language.Tag {
	return t.tag
}

// T returns the label for id, or id itself when no catalogue has it.
func (t *Translator) T(id string) string {
	msg, err := t.localizer.Localize(&goi18n.LocalizeConfig{MessageID: id})
	if err != nil {
		return id
	}
	return msg
}

// Money prints an amount rounded to cents with the locale's separators.
func (t *Translator) Money(amount decimal.Decimal) string {
	return t.printer.Sprintf("%.2f", amount.Round(2).InexactFloat64())
}

func (t *Translator) Hours(hours float64) string {
	return t.printer.Sprintf("%.2f", hours)
}
