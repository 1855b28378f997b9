package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Phone-like runs of digits, spaces, dashes, dots, parentheses and a leading plus.
// At least 9 characters so years and short numbers survive.
var rePhone = regexp.MustCompile(`\+?\d[\d\s\-\.()]{7,}\d`)

// NormalizePhone trims the identifier and drops inner spaces, dashes, dots and parentheses,
// so "+1 (555) 123-4567" and "+15551234567" name the same user.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MaskPhone keeps the last 4 digits for logs: +15551234567 -> +*******4567
func MaskPhone(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	prefix := ""
	if strings.HasPrefix(s, "+") {
		prefix, s = "+", s[1:]
	}
	if len(s) <= 4 {
		return prefix + s
	}
	return prefix + strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// RedactPhones replaces phone-looking runs inside free text.
func RedactPhones(s string) string {
	if s == "" {
		return s
	}
	return rePhone.ReplaceAllString(s, "[redacted phone]")
}

// Summary cuts s at a word boundary for listings.
func Summary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	i := max
	for i > 0 && i < len(s) && s[i] != ' ' {
		i--
	}
	if i <= 0 {
		// no space: cut at the last rune boundary within max bytes
		i = max
		for i > 0 && !utf8.RuneStart(s[i]) {
			i--
		}
	}
	return s[:i] + "…"
}
