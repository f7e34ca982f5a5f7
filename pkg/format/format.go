// Package format renders dates and prices for the dashboard and API.
// Day names are pinned to explicit Spanish strings so output does not depend
// on host locale data.
package format

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Monday = 0, matching the original data's weekday convention.
var spanishDays = [7]string{
	"Lunes",
	"Martes",
	"Miércoles",
	"Jueves",
	"Viernes",
	"Sábado",
	"Domingo",
}

// Date renders a calendar date as "Lunes 15/01/2024".
func Date(t time.Time) string {
	day := spanishDays[(int(t.Weekday())+6)%7]
	return day + " " + t.Format("02/01/2006")
}

// ShortDate renders a calendar date as "15/01/2024".
func ShortDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// DateTime renders a timestamp as "15/01/2024 14:30".
func DateTime(t time.Time) string {
	return t.Format("02/01/2006 15:04")
}

// Price renders a money amount as "$1,234.56": two decimal places,
// thousands separators, leading currency symbol.
func Price(d decimal.Decimal) string {
	fixed := d.StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString("$")
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(fracPart)
	return b.String()
}
