package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/disintegration/imaging"
)

// pdfToOCR renders pages to images, enhances them, and runs tesseract on
// each, concatenating the recognized text with page-break markers.
func (e *Extractor) pdfToOCR(ctx context.Context, path string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "viv-pp-*")
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", tmpDir, "error", err)
		}
	}()

	pages, err := e.pageImages(ctx, path, tmpDir)
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("no pages rendered")
	}

	var b strings.Builder
	for _, img := range pages {
		enhanced, err := e.enhanceForOCR(img)
		if err != nil {
			e.logger.Debug("image enhancement skipped", "image", img, "error", err)
			enhanced = img
		}
		txt, err := e.tesseractOCR(ctx, enhanced)
		if err != nil {
			e.logger.Warn("tesseract failed on page", "image", img, "error", err)
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n") // keep a clear page break marker
		}
		b.WriteString(txt)
	}
	return b.String(), nil
}

// enhanceForOCR applies grayscale, contrast and sharpening so tesseract
// copes better with low-quality scans. Returns the path of the processed
// image (written next to the original).
func (e *Extractor) enhanceForOCR(imagePath string) (string, error) {
	src, err := imaging.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}

	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)

	out := strings.TrimSuffix(imagePath, ".png") + "-enh.png"
	if err := imaging.Save(img, out); err != nil {
		return "", fmt.Errorf("save enhanced image: %w", err)
	}
	return out, nil
}

func (e *Extractor) tesseractOCR(ctx context.Context, imagePath string) (string, error) {
	args := []string{imagePath, "stdout", "-l", e.cfg.TesseractLang}
	out, _, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
