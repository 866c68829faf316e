package parse

import (
	"regexp"
	"strings"
)

// Chilean registration plates come in two shapes: the older two letters +
// four digits and the current four letters + two digits.
var (
	reOldPlate = regexp.MustCompile(`^[A-Z]{2}\d{4}$`)
	reNewPlate = regexp.MustCompile(`^[A-Z]{4}\d{2}$`)

	plateSeparators = strings.NewReplacer(".", "", "-", "", " ", "", "·", "")
)

// NormalizePlate uppercases and strips dots, hyphens and spaces.
func NormalizePlate(raw string) string {
	return plateSeparators.Replace(strings.ToUpper(strings.TrimSpace(raw)))
}

// ValidPlate reports whether the normalized value matches a national plate shape.
func ValidPlate(raw string) bool {
	p := NormalizePlate(raw)
	return reOldPlate.MatchString(p) || reNewPlate.MatchString(p)
}
