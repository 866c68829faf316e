package parse

import "testing"

func newCertParser(t *testing.T) *CertificateParser {
	t.Helper()
	brands, err := LoadBrandTable()
	if err != nil {
		t.Fatalf("LoadBrandTable: %v", err)
	}
	return NewCertificateParser(brands, nil)
}

const sampleCertificate = `REGISTRO DE VEHÍCULOS MOTORIZADOS
CERTIFICADO DE INSCRIPCIÓN Y ANOTACIONES VIGENTES
PLACA PATENTE ÚNICA : ABCD.12
MARCA : CHEV
MODELO : SPARK GT
AÑO : 2019
COLOR : ROJO
VIN : 1G1JC124717312345
COMBUSTIBLE : GASOLINA
`

func TestCertificateParseFull(t *testing.T) {
	p := newCertParser(t)
	got := p.Parse(sampleCertificate)

	if got.Plate == nil || *got.Plate != "ABCD12" {
		t.Errorf("Plate = %v, want ABCD12", deref(got.Plate))
	}
	if got.Brand == nil || *got.Brand != "CHEVROLET" {
		t.Errorf("Brand = %v, want CHEVROLET", deref(got.Brand))
	}
	if got.Model == nil || *got.Model != "SPARK GT" {
		t.Errorf("Model = %v, want SPARK GT", deref(got.Model))
	}
	if got.Year == nil || *got.Year != 2019 {
		t.Errorf("Year = %v, want 2019", got.Year)
	}
	if got.Color == nil || *got.Color != "ROJO" {
		t.Errorf("Color = %v, want ROJO", deref(got.Color))
	}
	if got.VIN == nil || *got.VIN != "1G1JC124717312345" {
		t.Errorf("VIN = %v", deref(got.VIN))
	}
	if got.FuelType == nil || *got.FuelType != "GASOLINA" {
		t.Errorf("FuelType = %v, want GASOLINA", deref(got.FuelType))
	}
}

func TestCertificateParseGluedColumns(t *testing.T) {
	// Layout extraction plus whitespace normalization can leave several
	// label/value pairs on one line with single spaces between them.
	p := newCertParser(t)
	got := p.Parse("PATENTE : BC1234 MARCA : TOYOTA MODELO : HILUX AÑO : 2015\n")

	if got.Plate == nil || *got.Plate != "BC1234" {
		t.Errorf("Plate = %v, want BC1234", deref(got.Plate))
	}
	if got.Brand == nil || *got.Brand != "TOYOTA" {
		t.Errorf("Brand = %v, want TOYOTA", deref(got.Brand))
	}
	if got.Model == nil || *got.Model != "HILUX" {
		t.Errorf("Model = %v, want HILUX", deref(got.Model))
	}
	if got.Year == nil || *got.Year != 2015 {
		t.Errorf("Year = %v, want 2015", got.Year)
	}
}

func TestCertificateParseBarePlateFallback(t *testing.T) {
	// OCR output frequently loses the field labels entirely.
	p := newCertParser(t)
	got := p.Parse("registro del vehiculo\nGHJK33\nuso particular\n")
	if got.Plate == nil || *got.Plate != "GHJK33" {
		t.Errorf("Plate = %v, want GHJK33", deref(got.Plate))
	}
}

func TestCertificateParseLowercaseInput(t *testing.T) {
	p := newCertParser(t)
	got := p.Parse("patente: ab·1234\nmarca: vw\n")
	if got.Plate == nil || *got.Plate != "AB1234" {
		t.Errorf("Plate = %v, want AB1234", deref(got.Plate))
	}
	if got.Brand == nil || *got.Brand != "VOLKSWAGEN" {
		t.Errorf("Brand = %v, want VOLKSWAGEN", deref(got.Brand))
	}
}

func TestCertificateParseRejectsBadYear(t *testing.T) {
	p := newCertParser(t)
	got := p.Parse("AÑO : 1111\n")
	if got.Year != nil {
		t.Errorf("Year = %v, want nil for out-of-range value", *got.Year)
	}
}

func TestCertificateParseEmpty(t *testing.T) {
	p := newCertParser(t)
	got := p.Parse("")
	if got.Plate != nil || got.Brand != nil || got.Model != nil || got.Year != nil {
		t.Errorf("expected all fields absent, got %+v", got)
	}
}
