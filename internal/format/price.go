package format

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.Russian)

// Price formats v the way the catalog shows prices: Russian digit grouping,
// decimal comma, at most three fraction digits. Non-finite values print as 0.
func Price(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}
