package extract

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/common"
)

// Extractor turns PDF bytes into plain text using layered strategies:
// the native text layer first, a layout-tolerant pass second, OCR last.
// It is a pure function of its input apart from logging: malformed input
// degrades to an empty string, never an error.
type Extractor struct {
	cfg    common.ExtractConfig
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg common.ExtractConfig, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "spa"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 50
	}
	return &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// NewExtractorWithRunner is used by tests to stub the external binaries.
func NewExtractorWithRunner(cfg common.ExtractConfig, runner Runner, logger *slog.Logger) *Extractor {
	e := NewExtractor(cfg, logger)
	e.runner = runner
	return e
}

// Text extracts plain text from PDF bytes. Strategies run in order and the
// first one producing enough trimmed characters wins. Total failure returns
// an empty string with a logged warning.
func (e *Extractor) Text(ctx context.Context, data []byte) string {
	path, cleanup, err := e.spool(data)
	if err != nil {
		e.logger.Warn("extract: cannot spool pdf to disk", "error", err)
		return ""
	}
	defer cleanup()

	type strategy struct {
		name string
		run  func(context.Context, string) (string, error)
	}
	strategies := []strategy{
		{"pdf-text", e.pdfToTextRaw},
		{"pdf-text-layout", e.pdfToTextLayout},
	}
	if e.cfg.OCREnabled {
		strategies = append(strategies, strategy{"pdf-ocr", e.pdfToOCR})
	}

	for _, s := range strategies {
		text, err := s.run(ctx, path)
		if err != nil {
			e.logger.Warn("extract strategy failed", "strategy", s.name, "error", err)
			continue
		}
		if e.enough(text) {
			e.logger.Debug("extract strategy succeeded", "strategy", s.name, "chars", len(text))
			return Normalize(text)
		}
		e.logger.Debug("extract strategy yielded too little text", "strategy", s.name, "chars", len(strings.TrimSpace(text)))
	}

	e.logger.Warn("extract: no strategy produced usable text", "bytes", len(data))
	return ""
}

func (e *Extractor) enough(text string) bool {
	return len(strings.TrimSpace(text)) >= e.cfg.MinTextChars
}

// spool writes the PDF bytes to a temp file for the command-line tools.
func (e *Extractor) spool(data []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "viv-doc-*.pdf")
	if err != nil {
		return "", nil, err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", nil, err
	}
	name := f.Name()
	return name, func() { _ = os.Remove(name) }, nil
}

func (e *Extractor) pdfToTextRaw(ctx context.Context, path string) (string, error) {
	// pdftotext -enc UTF-8 -eol unix <path> -
	out, _, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (e *Extractor) pdfToTextLayout(ctx context.Context, path string) (string, error) {
	// -layout keeps column alignment, which helps label/value documents
	out, _, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// pageImages returns the rendered page PNGs for a PDF, capped at MaxPages.
func (e *Extractor) pageImages(ctx context.Context, path, tmpDir string) ([]string, error) {
	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	_, _, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return nil, err
	}
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	return matches, nil
}
