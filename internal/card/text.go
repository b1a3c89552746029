package card

import (
	"strings"
	"time"
	"unicode"
)

// fitText shrinks s to the horizontal budget by dropping trailing
// characters one at a time, appending "..." only when truncation
// actually occurred. measure reports the rendered width of a string at
// the nominal font size. At least one character always survives.
func fitText(measure func(string) float64, s string, maxWidth float64) string {
	if measure(s) <= maxWidth {
		return s
	}

	runes := []rune(s)
	for len(runes) > 1 && measure(string(runes)+"...") > maxWidth {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

// initials derives up to two placeholder initials from a display name:
// the first letter of the first two space-separated tokens, uppercased.
// A name with no usable tokens yields "?".
func initials(name string) string {
	var out []rune
	for _, token := range strings.Fields(name) {
		r := []rune(token)
		out = append(out, unicode.ToUpper(r[0]))
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

// memberSince formats a join timestamp as abbreviated month + year.
func memberSince(t time.Time) string {
	return t.Format("Jan 2006")
}
