package parse

import (
	"regexp"
	"strings"
)

// candidate is one regex attempt for a field. The first capture group is the
// raw value; validate may reject it (causing the next candidate to run) and
// may rewrite it into canonical form.
type candidate struct {
	re       *regexp.Regexp
	validate func(string) (string, bool)
}

// accept trims the match and takes it as-is.
func accept(raw string) (string, bool) {
	v := strings.TrimSpace(raw)
	return v, v != ""
}

// firstMatch walks the candidates in order and returns the first matched and
// validated value. A matched-but-invalid value is discarded, not fatal.
func firstMatch(text string, candidates []candidate) (string, bool) {
	for _, c := range candidates {
		for _, m := range c.re.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			if v, ok := c.validate(m[1]); ok {
				return v, true
			}
		}
	}
	return "", false
}
