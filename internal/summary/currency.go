package summary

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Amounts are always rupiah with Indonesian digit grouping
var printer = message.NewPrinter(language.Indonesian)

const currencySymbol = "Rp"

// FormatCurrency rounds amount to a whole rupiah and renders it with the
// currency symbol and grouped digits, e.g. "Rp 150.000"
func FormatCurrency(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	return printer.Sprintf("%s %d", currencySymbol, int64(math.Round(amount)))
}

var indonesianMonths = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// FormatDate renders a long Indonesian date, e.g. "14 Oktober 2026"
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), indonesianMonths[t.Month()-1], t.Year())
}
