// Package classify labels an uploaded document as a case-order ("oficio"),
// a vehicle certificate ("CAV"), or unknown. The filename verdict takes
// precedence over the text scan: operators name files far more reliably
// than OCR transcribes them.
package classify

import (
	"strings"
	"unicode"

	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/constants"
)

var (
	orderFilenameKeys = []string{"oficio", "of-"}
	certFilenameKeys  = []string{"cav", "certificado"}

	orderTextKeys = []string{"oficio", "rol", "juzgado"}
	certTextKeys  = []string{"certificado de inscripcion", "patente", "marca", "modelo"}
)

// Classify returns the document kind for a filename and its extracted text.
func Classify(filename, text string) constants.DocKind {
	name := normalizeName(filename)
	for _, k := range orderFilenameKeys {
		if strings.Contains(name, k) {
			return constants.KindCaseOrder
		}
	}
	for _, k := range certFilenameKeys {
		if strings.Contains(name, k) {
			return constants.KindCertificate
		}
	}

	body := normalizeName(text)
	for _, k := range orderTextKeys {
		if strings.Contains(body, k) {
			return constants.KindCaseOrder
		}
	}
	for _, k := range certTextKeys {
		if strings.Contains(body, k) {
			return constants.KindCertificate
		}
	}
	return constants.KindUnknown
}

// normalizeName strips diacritics and lowercases, so "Certificación" and
// "certificacion" match the same keyword.
func normalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if folded, ok := diacritics[r]; ok {
			b.WriteRune(folded)
			continue
		}
		if r > unicode.MaxASCII && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var diacritics = map[rune]rune{
	'á': 'a', 'à': 'a', 'ä': 'a', 'â': 'a',
	'é': 'e', 'è': 'e', 'ë': 'e', 'ê': 'e',
	'í': 'i', 'ì': 'i', 'ï': 'i', 'î': 'i',
	'ó': 'o', 'ò': 'o', 'ö': 'o', 'ô': 'o',
	'ú': 'u', 'ù': 'u', 'ü': 'u', 'û': 'u',
	'ñ': 'n',
}
