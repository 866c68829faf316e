// Package parse extracts structured fields from the plain text of classified
// documents. Each field tries an ordered list of regex candidates; the first
// match that also passes its semantic validator wins, and a matched-but-invalid
// value falls through to the next pattern. No single-field failure is fatal.
package parse

import (
	"log/slog"
	"regexp"
	"strings"
)

var caseNumberCandidates = []candidate{
	{regexp.MustCompile(`(?i)OFICIO\s*(?:N\s*[°ºo.]*\s*)?:?\s*(\d{1,10})`), acceptNumber},
	{regexp.MustCompile(`(?i)\bROL\s*(?:N\s*[°º.]*\s*)?:?\s*([A-Z]?-?\d+(?:-\d+)?)`), acceptNumber},
	{regexp.MustCompile(`(?i)CAUSA\s*(?:N\s*[°º.]*\s*)?:?\s*([A-Z]?-?\d+(?:-\d+)?)`), acceptNumber},
}

var ownerRUTCandidates = []candidate{
	{regexp.MustCompile(`(?i)R\.?\s?U\.?\s?T\.?\s*(?:N\s*[°º.]*)?\s*:?\s*((?:\d{1,3}(?:\.\d{3}){1,2}|\d{7,8})\s*-?\s*[\dkK])`), validateRUT},
	{regexp.MustCompile(`(?i)C[ÉE]DULA(?:\s+NACIONAL)?(?:\s+DE\s+IDENTIDAD)?\s*(?:N\s*[°º.]*)?\s*:?\s*((?:\d{1,3}(?:\.\d{3}){1,2}|\d{7,8})\s*-?\s*[\dkK])`), validateRUT},
	// Bare dotted RUT anywhere in the text, last resort.
	{regexp.MustCompile(`\b(\d{1,3}(?:\.\d{3}){2}\s*-\s*[\dkK])\b`), validateRUT},
}

var ownerNameCandidates = []candidate{
	{regexp.MustCompile(`(?i)NOMBRE(?:\s+DEL)?(?:\s+PROPIETARIO)?\s*:?[ \t]*([^\n]{3,80})`), validateName},
	{regexp.MustCompile(`(?i)PROPIETARIO\s*:?[ \t]*([^\n]{3,80})`), validateName},
	{regexp.MustCompile(`(?i)DEMANDADO\s*:?[ \t]*([^\n]{3,80})`), validateName},
}

var addressPattern = regexp.MustCompile(`(?i)(?:DOMICILIO|DIRECCI[ÓO]N)\s*:?[ \t]*([^\n]{5,120})`)

var legalContextCandidates = []candidate{
	{regexp.MustCompile(`(?im)^.*?(\d{1,2}\s*[°º]?\s*JUZGADO[^\n]{0,100})`), accept},
	{regexp.MustCompile(`(?im)^.*?(JUZGADO[^\n]{0,100})`), accept},
	{regexp.MustCompile(`(?i)(CAUSA\s+[^\n]{5,120})`), accept},
}

var orderDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)FECHA\s*:?\s*(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4})`),
	regexp.MustCompile(`(?i),\s*(\d{1,2}\s+de\s+\p{L}+\s+de\s+\d{4})`),
	regexp.MustCompile(`\b(\d{1,2}[/.-]\d{1,2}[/.-]\d{4})\b`),
}

// CaseOrderParser extracts fields from a judicial case-order ("oficio").
type CaseOrderParser struct {
	logger *slog.Logger
}

func NewCaseOrderParser(logger *slog.Logger) *CaseOrderParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &CaseOrderParser{logger: logger}
}

// Parse extracts whatever fields the text yields. Absent fields stay nil.
func (p *CaseOrderParser) Parse(text string) CaseOrderFields {
	var out CaseOrderFields

	if v, ok := firstMatch(text, caseNumberCandidates); ok {
		out.CaseNumber = strPtr(v)
	}
	if v, ok := firstMatch(text, ownerRUTCandidates); ok {
		out.OwnerRUT = strPtr(v)
	}
	if v, ok := firstMatch(text, ownerNameCandidates); ok {
		out.OwnerName = strPtr(v)
	}
	for _, m := range addressPattern.FindAllStringSubmatch(text, -1) {
		if addr := strings.TrimSpace(strings.TrimRight(m[1], " .,")); addr != "" {
			out.Addresses = append(out.Addresses, addr)
		}
	}
	if v, ok := firstMatch(text, legalContextCandidates); ok {
		out.LegalContext = strPtr(v)
	}
	for _, re := range orderDatePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if t, ok := parseDate(m[1]); ok {
			out.OrderDate = &t
			break
		}
	}

	p.logger.Debug("case-order parsed",
		"case_number", out.CaseNumber != nil,
		"owner_rut", out.OwnerRUT != nil,
		"owner_name", out.OwnerName != nil,
		"addresses", len(out.Addresses),
	)
	return out
}

// acceptNumber trims surrounding punctuation off the matched case number.
func acceptNumber(raw string) (string, bool) {
	v := strings.Trim(strings.TrimSpace(raw), ".-")
	return v, v != ""
}

func validateRUT(raw string) (string, bool) {
	if !ValidRUT(raw) {
		return "", false
	}
	return NormalizeRUT(raw), true
}

var reNameTrailer = regexp.MustCompile(`(?i)[,;]?\s+(R\.?\s?U\.?\s?T|C[ÉE]DULA|RUN)\b.*$`)

// validateName rejects captures that are clearly labels or numbers rather
// than a person's name. A trailing "RUT 12.345.678-5" on the same line is
// cut off, not a reason to discard the name.
func validateName(raw string) (string, bool) {
	v := reNameTrailer.ReplaceAllString(raw, "")
	v = strings.TrimSpace(strings.Trim(v, " :.,"))
	if len(v) < 3 {
		return "", false
	}
	letters := 0
	for _, r := range v {
		if r >= '0' && r <= '9' {
			return "", false
		}
		if r != ' ' {
			letters++
		}
	}
	if letters < 3 || !strings.Contains(v, " ") {
		return "", false
	}
	return v, true
}
