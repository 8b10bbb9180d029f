package domain

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var usPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatNumber formats f with US digit grouping and at most three fraction
// digits, e.g. 1234.5678 -> "1,234.568".
func FormatNumber(f float64) string {
	return usPrinter.Sprint(number.Decimal(f, number.MaxFractionDigits(3)))
}

// FormatPercent formats a ratio as a percentage with exactly two fraction
// digits, e.g. 0.125 -> "12.50%".
func FormatPercent(ratio float64) string {
	return usPrinter.Sprint(number.Percent(ratio, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}
