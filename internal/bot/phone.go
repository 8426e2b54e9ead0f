package bot

import (
	"strings"
	"unicode"
)

// NormalizePhoneNumber rewrites local Indonesian numbers to +62 form.
// Anything else keeps its digits and a leading plus, if it had one.
func NormalizePhoneNumber(phone string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)

	switch {
	case cleaned == "":
		return ""
	case strings.HasPrefix(cleaned, "62"):
		return "+" + cleaned
	case strings.HasPrefix(cleaned, "08"):
		return "+62" + cleaned[1:]
	case strings.HasPrefix(cleaned, "8") && len(cleaned) >= 9:
		return "+62" + cleaned
	case strings.HasPrefix(strings.TrimSpace(phone), "+"):
		return "+" + cleaned
	}
	return cleaned
}
