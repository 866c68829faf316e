package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/common"
)

// runnerFunc lets each test script the external binaries.
type runnerFunc func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)

func (f runnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return f(ctx, name, args...)
}

func testConfig() common.ExtractConfig {
	return common.ExtractConfig{
		Pdftotext:    "pdftotext",
		Pdftoppm:     "pdftoppm",
		Tesseract:    "tesseract",
		OCREnabled:   false,
		MinTextChars: 10,
	}
}

func TestTextFirstStrategyWins(t *testing.T) {
	calls := 0
	runner := runnerFunc(func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		calls++
		return []byte("OFICIO N° 1234 JUZGADO DE LETRAS\n"), nil, nil
	})
	e := NewExtractorWithRunner(testConfig(), runner, nil)

	got := e.Text(context.Background(), []byte("%PDF-fake"))
	if !strings.Contains(got, "OFICIO N° 1234") {
		t.Errorf("Text = %q", got)
	}
	if calls != 1 {
		t.Errorf("expected 1 runner call, got %d", calls)
	}
}

func TestTextFallsBackToLayout(t *testing.T) {
	runner := runnerFunc(func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		for _, a := range args {
			if a == "-layout" {
				return []byte("PATENTE : ABCD12 MARCA : CHEVROLET\n"), nil, nil
			}
		}
		// raw pass yields almost nothing, as image-only PDFs do
		return []byte(" \n"), nil, nil
	})
	e := NewExtractorWithRunner(testConfig(), runner, nil)

	got := e.Text(context.Background(), []byte("%PDF-fake"))
	if !strings.Contains(got, "PATENTE : ABCD12") {
		t.Errorf("Text = %q", got)
	}
}

func TestTextSurvivesStrategyError(t *testing.T) {
	runner := runnerFunc(func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		for _, a := range args {
			if a == "-layout" {
				return []byte("texto recuperado por la segunda pasada\n"), nil, nil
			}
		}
		return nil, []byte("Syntax Error: broken xref"), errors.New("exit status 1")
	})
	e := NewExtractorWithRunner(testConfig(), runner, nil)

	got := e.Text(context.Background(), []byte("%PDF-fake"))
	if !strings.Contains(got, "texto recuperado") {
		t.Errorf("Text = %q", got)
	}
}

func TestTextAllStrategiesTooShort(t *testing.T) {
	runner := runnerFunc(func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		return []byte("x"), nil, nil
	})
	e := NewExtractorWithRunner(testConfig(), runner, nil)

	if got := e.Text(context.Background(), []byte("%PDF-fake")); got != "" {
		t.Errorf("Text = %q, want empty", got)
	}
}

func TestTextOutputIsNormalized(t *testing.T) {
	runner := runnerFunc(func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		return []byte("MARCA :   CHEV\r\n\r\n\r\n\r\nMODELO : SPARK\r\n"), nil, nil
	})
	e := NewExtractorWithRunner(testConfig(), runner, nil)

	got := e.Text(context.Background(), []byte("%PDF-fake"))
	want := "MARCA : CHEV\n\nMODELO : SPARK"
	if got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}
}
