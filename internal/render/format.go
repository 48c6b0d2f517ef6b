package render

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Terminal output groups thousands; the CSV exporter never does.
var printer = message.NewPrinter(language.English)

func formatCount(n int) string {
	return printer.Sprintf("%d", n)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatRate renders an engagement ratio such as 0.042 as a percentage.
func formatRate(v *float64) string {
	if v == nil {
		return "-"
	}
	return printer.Sprintf("%.2f%%", *v*100)
}
