package ocr

import (
	"context"
	"fmt"
)

// runTesseract OCRs a single raster image to stdout text.
func (e *Extractor) runTesseract(ctx context.Context, imagePath string) (string, error) {
	out, err := e.runner.Run(ctx, e.cfg.TesseractCmd,
		imagePath, "stdout", "-l", e.cfg.Lang, "--psm", "3")
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil
}
