package parse

import (
	"testing"
	"time"
)

const sampleOrder = `2° JUZGADO DE LETRAS DE SANTIAGO
OFICIO N° 1234
Santiago, 12 de marzo de 2024

En causa sobre prenda, se ordena la incautación del vehículo del
DEMANDADO: JUAN PÉREZ SOTO, RUT 12.345.678-5
DOMICILIO: CALLE LARGA 123, SANTIAGO
DOMICILIO: AVENIDA SIEMPRE VIVA 742, PROVIDENCIA
`

func TestCaseOrderParseFull(t *testing.T) {
	p := NewCaseOrderParser(nil)
	got := p.Parse(sampleOrder)

	if got.CaseNumber == nil || *got.CaseNumber != "1234" {
		t.Errorf("CaseNumber = %v, want 1234", deref(got.CaseNumber))
	}
	if got.OwnerRUT == nil || *got.OwnerRUT != "12345678-5" {
		t.Errorf("OwnerRUT = %v, want 12345678-5", deref(got.OwnerRUT))
	}
	if got.OwnerName == nil || *got.OwnerName != "JUAN PÉREZ SOTO" {
		t.Errorf("OwnerName = %v, want JUAN PÉREZ SOTO", deref(got.OwnerName))
	}
	if len(got.Addresses) != 2 {
		t.Fatalf("Addresses = %v, want 2 entries", got.Addresses)
	}
	if got.Addresses[0] != "CALLE LARGA 123, SANTIAGO" {
		t.Errorf("Addresses[0] = %q", got.Addresses[0])
	}
	if got.LegalContext == nil || *got.LegalContext != "2° JUZGADO DE LETRAS DE SANTIAGO" {
		t.Errorf("LegalContext = %v", deref(got.LegalContext))
	}
	want := time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC)
	if got.OrderDate == nil || !got.OrderDate.Equal(want) {
		t.Errorf("OrderDate = %v, want %v", got.OrderDate, want)
	}
}

func TestCaseOrderParseRolFallback(t *testing.T) {
	p := NewCaseOrderParser(nil)
	got := p.Parse("JUZGADO DE GARANTÍA\nROL N° C-5678-2023\n")
	if got.CaseNumber == nil || *got.CaseNumber != "C-5678-2023" {
		t.Errorf("CaseNumber = %v, want C-5678-2023", deref(got.CaseNumber))
	}
}

func TestCaseOrderParseInvalidRUTSkipped(t *testing.T) {
	// A labeled RUT with a bad check digit must not be reported; the bare
	// dotted fallback picks up the valid one further down.
	p := NewCaseOrderParser(nil)
	got := p.Parse("RUT: 12.345.678-4\nconsta además 20.347.878-K en el expediente\n")
	if got.OwnerRUT == nil || *got.OwnerRUT != "20347878-K" {
		t.Errorf("OwnerRUT = %v, want 20347878-K", deref(got.OwnerRUT))
	}
}

func TestCaseOrderParseEmpty(t *testing.T) {
	p := NewCaseOrderParser(nil)
	got := p.Parse("")
	if got.CaseNumber != nil || got.OwnerRUT != nil || got.OwnerName != nil ||
		len(got.Addresses) != 0 || got.LegalContext != nil || got.OrderDate != nil {
		t.Errorf("expected all fields absent, got %+v", got)
	}
}

func TestValidateNameRejectsLabels(t *testing.T) {
	cases := []string{
		"12345678",  // digits
		"X",         // too short
		"SINESPACIO", // single token
	}
	for _, c := range cases {
		if _, ok := validateName(c); ok {
			t.Errorf("validateName(%q) accepted, want rejection", c)
		}
	}

	if v, ok := validateName("MARÍA LÓPEZ, RUT 9.876.543-3"); !ok || v != "MARÍA LÓPEZ" {
		t.Errorf("validateName trailing RUT: got %q ok=%v", v, ok)
	}
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
