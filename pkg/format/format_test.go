package format

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateUsesSpanishWeekday(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{date: "2024-01-15", want: "Lunes 15/01/2024"},
		{date: "2024-01-16", want: "Martes 16/01/2024"},
		{date: "2024-01-17", want: "Miércoles 17/01/2024"},
		{date: "2024-01-20", want: "Sábado 20/01/2024"},
		{date: "2024-01-21", want: "Domingo 21/01/2024"},
	}

	for _, tt := range tests {
		parsed, err := time.Parse("2006-01-02", tt.date)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.date, err)
		}
		if got := Date(parsed); got != tt.want {
			t.Fatalf("Date(%s) = %q, want %q", tt.date, got, tt.want)
		}
	}
}

func TestShortDate(t *testing.T) {
	parsed, _ := time.Parse("2006-01-02", "2024-03-05")
	if got := ShortDate(parsed); got != "05/03/2024" {
		t.Fatalf("unexpected short date %q", got)
	}
}

func TestPriceGroupsThousands(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "0", want: "$0.00"},
		{in: "0.01", want: "$0.01"},
		{in: "50", want: "$50.00"},
		{in: "1234.56", want: "$1,234.56"},
		{in: "1000000", want: "$1,000,000.00"},
		{in: "987654321.1", want: "$987,654,321.10"},
		{in: "-1234.5", want: "-$1,234.50"},
	}

	for _, tt := range tests {
		d, err := decimal.NewFromString(tt.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.in, err)
		}
		if got := Price(d); got != tt.want {
			t.Fatalf("Price(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
