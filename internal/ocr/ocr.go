// Package ocr turns uploaded documents into raw text. PDFs are rasterized
// and run through tesseract page by page; if that yields nothing the
// embedded text layer is tried. Images go straight to tesseract, with HEIC
// converted first.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KCD1111/DMVREAL/constants"
	"github.com/KCD1111/DMVREAL/internal/common"
)

// Config holds OCR tool settings.
type Config struct {
	TesseractCmd string
	PdftoppmCmd  string
	// DPI used when rasterizing PDF pages.
	DPI int
	// Lang is the tesseract language pack.
	Lang string
	// MaxParallelPages caps concurrent tesseract processes for one PDF.
	MaxParallelPages int
}

func (c *Config) setDefaults() {
	if c.TesseractCmd == "" {
		c.TesseractCmd = "tesseract"
	}
	if c.PdftoppmCmd == "" {
		c.PdftoppmCmd = "pdftoppm"
	}
	if c.DPI == 0 {
		c.DPI = 300
	}
	if c.Lang == "" {
		c.Lang = "eng"
	}
	if c.MaxParallelPages == 0 {
		c.MaxParallelPages = 4
	}
}

// Result is the text pulled from one document.
type Result struct {
	Text string
	// Confidence is a heuristic score in [0,1] over the extracted text.
	Confidence float64
	// Source names the strategy that produced the text: "tesseract",
	// "pdf-text-layer".
	Source string
}

// Extractor runs the OCR strategies.
type Extractor struct {
	cfg    Config
	runner Runner
	log    *slog.Logger
}

func New(cfg Config, runner Runner, logger *slog.Logger) *Extractor {
	cfg.setDefaults()
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, runner: runner, log: logger}
}

// CheckTools verifies the required binaries are present. Called at startup;
// a missing OCR engine is terminal, not something to degrade around.
func (e *Extractor) CheckTools() error {
	if _, err := e.runner.LookPath(e.cfg.TesseractCmd); err != nil {
		return fmt.Errorf("%w: %s not found: %v", common.ErrCollaboratorUnavailable, e.cfg.TesseractCmd, err)
	}
	return nil
}

// ExtractFile routes by extension. ext is normalized lowercase without the
// leading dot.
func (e *Extractor) ExtractFile(ctx context.Context, path, ext string) (Result, error) {
	ext = constants.NormalizeExt(ext)
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return Result{}, fmt.Errorf("%w: unsupported file type %q", common.ErrInvalidInput, ext)
	}
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		return e.extractPDF(ctx, path)
	default:
		return e.extractImage(ctx, path, ext)
	}
}

// extractPDF rasterizes and OCRs first; the embedded text layer is only a
// fallback because license scans rarely carry a useful one.
func (e *Extractor) extractPDF(ctx context.Context, path string) (Result, error) {
	text, err := e.ocrPDF(ctx, path)
	if err != nil {
		e.log.Warn("ocr.pdf.raster_failed", "error", err)
	} else if strings.TrimSpace(text) != "" {
		return Result{Text: text, Confidence: e.scoreText(text), Source: "tesseract"}, nil
	}

	layer, lerr := extractTextLayer(path)
	if lerr != nil {
		e.log.Warn("ocr.pdf.text_layer_failed", "error", lerr)
	} else if strings.TrimSpace(layer) != "" {
		e.log.Info("ocr.pdf.text_layer_used", "len", len(layer))
		return Result{Text: layer, Confidence: e.scoreText(layer), Source: "pdf-text-layer"}, nil
	}

	return Result{}, fmt.Errorf("%w: pdf %s", common.ErrNoTextExtracted, path)
}

func (e *Extractor) extractImage(ctx context.Context, path, ext string) (Result, error) {
	if constants.IsHEICExt(ext) {
		converted, err := e.convertHEIC(ctx, path)
		if err != nil {
			return Result{}, err
		}
		path = converted
	}
	text, err := e.runTesseract(ctx, path)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("%w: image %s", common.ErrNoTextExtracted, path)
	}
	return Result{Text: text, Confidence: e.scoreText(text), Source: "tesseract"}, nil
}
