package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ocrPDF rasterizes every page with pdftoppm and OCRs the pages in
// parallel, concatenating the results in page order.
func (e *Extractor) ocrPDF(ctx context.Context, path string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "licenseocr-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	_, err = e.runner.Run(ctx, e.cfg.PdftoppmCmd,
		"-png", "-r", strconv.Itoa(e.cfg.DPI), path, prefix)
	if err != nil {
		return "", fmt.Errorf("rasterize pdf: %w", err)
	}

	pages, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return "", fmt.Errorf("list rasterized pages: %w", err)
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("pdftoppm produced no pages for %s", path)
	}
	// pdftoppm zero-pads page numbers, so lexical order is page order.
	sort.Strings(pages)

	e.log.Debug("ocr.pdf.pages", "count", len(pages), "dpi", e.cfg.DPI)

	texts := make([]string, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxParallelPages)
	for i, page := range pages {
		g.Go(func() error {
			text, err := e.runTesseract(gctx, page)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(texts, "\n"), nil
}
