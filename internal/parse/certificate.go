package parse

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

var platedCandidates = []candidate{
	{regexp.MustCompile(`(?i)(?:PLACA\s+PATENTE(?:\s+[ÚU]NICA)?|PATENTE|PLACA|P\.?P\.?U\.?)\s*(?:N\s*[°º.]*)?\s*:?\s*([A-Z]{2}[\s.·-]?\d{4}|[A-Z]{4}[\s.·-]?\d{2})`), validatePlate},
	{regexp.MustCompile(`(?i)INSCRIPCI[ÓO]N\s*(?:N\s*[°º.]*)?\s*:?\s*([A-Z]{2}[\s.·-]?\d{4}|[A-Z]{4}[\s.·-]?\d{2})`), validatePlate},
}

// barePlatePattern matches unlabeled plate shapes anywhere in the text; OCR
// output frequently loses the field labels.
var barePlatePattern = regexp.MustCompile(`\b([A-Z]{4}[.·\-\s]?\d{2}|[A-Z]{2}[.·\-\s]?\d{4})\b`)

var brandCandidates = []candidate{
	{regexp.MustCompile(`(?i)MARCA\s*:?[ \t]*([A-ZÁÉÍÓÚÑ0-9][A-ZÁÉÍÓÚÑ0-9 .\-]{1,29})`), acceptLine},
}

var modelCandidates = []candidate{
	{regexp.MustCompile(`(?i)MODELO\s*:?[ \t]*([A-ZÁÉÍÓÚÑ0-9][A-ZÁÉÍÓÚÑ0-9 .\-/]{0,39})`), acceptLine},
}

var yearCandidates = []candidate{
	{regexp.MustCompile(`(?i)A[ÑN]O(?:\s+(?:DE\s+)?FABRICACI[ÓO]N)?\s*:?\s*(\d{4})`), validateYear},
	{regexp.MustCompile(`(?i)MODELO\s+A[ÑN]O\s*:?\s*(\d{4})`), validateYear},
}

var colorCandidates = []candidate{
	{regexp.MustCompile(`(?i)COLOR\s*:?[ \t]*([A-ZÁÉÍÓÚÑ][A-ZÁÉÍÓÚÑ ]{2,29})`), acceptLine},
}

var vinCandidates = []candidate{
	{regexp.MustCompile(`(?i)(?:N\s*[°º.]*\s*)?(?:VIN|CHASIS|N[°º]?\s*DE\s*CHASIS)\s*:?\s*([A-HJ-NPR-Z0-9]{6,17})`), validateVIN},
	{regexp.MustCompile(`(?i)SERIE\s*:?\s*([A-HJ-NPR-Z0-9]{6,17})`), validateVIN},
}

var vehicleTypeCandidates = []candidate{
	{regexp.MustCompile(`(?i)TIPO(?:\s+DE)?\s+VEH[IÍ]CULO\s*:?[ \t]*([A-ZÁÉÍÓÚÑ ]{3,30})`), acceptLine},
	{regexp.MustCompile(`(?i)\b(AUTOM[ÓO]VIL|STATION\s*WAGON|CAMIONETA|CAMI[ÓO]N|FURG[ÓO]N|MOTOCICLETA|JEEP|MINIBUS|BUS)\b`), accept},
}

var fuelCandidates = []candidate{
	{regexp.MustCompile(`(?i)COMBUSTIBLE\s*:?[ \t]*([A-ZÁÉÍÓÚÑ ]{3,20})`), acceptLine},
	{regexp.MustCompile(`(?i)\b(GASOLINA|BENCINA|DI[ÉE]SEL|PETR[ÓO]LEO|EL[ÉE]CTRICO|H[ÍI]BRIDO|GAS)\b`), accept},
}

// CertificateParser extracts fields from a vehicle registration certificate.
type CertificateParser struct {
	brands *BrandTable
	logger *slog.Logger
}

func NewCertificateParser(brands *BrandTable, logger *slog.Logger) *CertificateParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &CertificateParser{brands: brands, logger: logger}
}

// Parse extracts whatever fields the text yields. Absent fields stay nil.
// The plate falls back to a bare-pattern scan when no labeled match exists.
func (p *CertificateParser) Parse(text string) CertificateFields {
	var out CertificateFields
	upper := strings.ToUpper(text)

	if v, ok := firstMatch(upper, platedCandidates); ok {
		out.Plate = strPtr(v)
	} else if m := barePlatePattern.FindStringSubmatch(upper); m != nil {
		if v, ok := validatePlate(m[1]); ok {
			out.Plate = strPtr(v)
		}
	}

	if v, ok := firstMatch(upper, brandCandidates); ok {
		out.Brand = strPtr(p.brands.Canonical(v))
	}
	if v, ok := firstMatch(upper, modelCandidates); ok {
		out.Model = strPtr(v)
	}
	if v, ok := firstMatch(upper, yearCandidates); ok {
		year, _ := strconv.Atoi(v)
		out.Year = &year
	}
	if v, ok := firstMatch(upper, colorCandidates); ok {
		out.Color = strPtr(v)
	}
	if v, ok := firstMatch(upper, vinCandidates); ok {
		out.VIN = strPtr(v)
	}
	if v, ok := firstMatch(upper, vehicleTypeCandidates); ok {
		out.VehicleType = strPtr(v)
	}
	if v, ok := firstMatch(upper, fuelCandidates); ok {
		out.FuelType = strPtr(v)
	}

	p.logger.Debug("certificate parsed",
		"plate", out.Plate != nil,
		"brand", out.Brand != nil,
		"model", out.Model != nil,
		"year", out.Year != nil,
	)
	return out
}

func validatePlate(raw string) (string, bool) {
	if !ValidPlate(raw) {
		return "", false
	}
	return NormalizePlate(raw), true
}

func validateYear(raw string) (string, bool) {
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || year < 1900 || year > 2100 {
		return "", false
	}
	return strconv.Itoa(year), true
}

// validateVIN uppercases and rejects values that are too short to be a
// chassis number once separators are stripped.
func validateVIN(raw string) (string, bool) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if len(v) < 6 {
		return "", false
	}
	return v, true
}

// acceptLine trims the capture and cuts it at the next field label on the
// same physical line. Layout extraction glues columns together and whitespace
// normalization then collapses the gap, so the cut keys on the label words
// themselves rather than on spacing.
func acceptLine(raw string) (string, bool) {
	v := strings.TrimSpace(raw)
	if i := reNextLabel.FindStringIndex(v); i != nil {
		v = strings.TrimSpace(v[:i[0]])
	}
	v = strings.TrimRight(v, " .,:")
	return v, v != ""
}

var reNextLabel = regexp.MustCompile(`\s+(?:MARCA|MODELO|A[ÑN]O|COLOR|VIN|CHASIS|SERIE|COMBUSTIBLE|TIPO|PATENTE|PLACA|INSCRIPCI[ÓO]N|PPU)\b`)
