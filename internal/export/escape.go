package export

import (
	"strings"
)

const (
	quote     = `"`
	separator = ","
	lineBreak = "\n"
	listSep   = ", "
)

// EscapeCell wraps s in double quotes and doubles every quote inside it.
// Separators and line breaks need no further treatment once quoted.
func EscapeCell(s string) string {
	return quote + strings.ReplaceAll(s, quote, quote+quote) + quote
}

// writeRecord appends one quoted record without a trailing line break.
func writeRecord(sb *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			sb.WriteString(separator)
		}
		sb.WriteString(EscapeCell(cell))
	}
}
