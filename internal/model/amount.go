package model

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.Korean)

// FormatAmount renders a currency amount rounded to whole won with thousands separators.
func FormatAmount(v float64) string {
	return amountPrinter.Sprintf("%d", int64(math.Round(v)))
}
