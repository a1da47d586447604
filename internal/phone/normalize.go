// Package phone turns free-form contact strings into messaging recipient addresses.
package phone

import "strings"

const localNumberLength = 10

// Normalize keeps only digits, drops a leading international "00" and prefixes
// defaultCountryCode to 10-digit local numbers. It never fails: input without
// digits yields an empty string.
func Normalize(raw string, defaultCountryCode string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := strings.TrimPrefix(b.String(), "00")
	if len(digits) == localNumberLength {
		return strings.TrimSpace(defaultCountryCode) + digits
	}
	return digits
}
