package parse

import (
	"strings"
)

// NormalizeRUT strips dots and whitespace from a Chilean RUT and uppercases
// the check digit, returning e.g. "12345678-5". The hyphen before the check
// digit is inserted when missing. It does not validate.
func NormalizeRUT(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer(".", "", " ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "-") && len(s) >= 2 {
		s = s[:len(s)-1] + "-" + s[len(s)-1:]
	}
	return s
}

// ValidRUT reports whether the RUT carries a correct modulo-11 check digit.
// Accepts dotted and undotted forms, with or without the hyphen.
func ValidRUT(raw string) bool {
	s := NormalizeRUT(raw)
	parts := strings.Split(s, "-")
	if len(parts) != 2 || len(parts[0]) < 7 || len(parts[0]) > 8 || len(parts[1]) != 1 {
		return false
	}
	body, dv := parts[0], parts[1]
	for _, r := range body {
		if r < '0' || r > '9' {
			return false
		}
	}
	return computeRUTCheckDigit(body) == dv
}

// computeRUTCheckDigit implements the modulo-11 scheme: digits weighted
// 2..7 from right to left, cycling; 11 -> "0", 10 -> "K".
func computeRUTCheckDigit(body string) string {
	sum := 0
	factor := 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}
	switch rest := 11 - sum%11; rest {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return string(rune('0' + rest))
	}
}
