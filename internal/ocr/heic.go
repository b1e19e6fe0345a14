package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// heicConverters are tried in order; the first binary on PATH wins.
var heicConverters = []string{"magick", "convert", "heif-convert", "sips"}

// convertHEIC converts a HEIC/HEIF image to JPEG in a temp file and returns
// the new path. Caller-visible files are never modified.
func (e *Extractor) convertHEIC(ctx context.Context, path string) (string, error) {
	out := filepath.Join(os.TempDir(),
		strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+"-conv.jpg")

	for _, tool := range heicConverters {
		if _, err := e.runner.LookPath(tool); err != nil {
			continue
		}
		var args []string
		switch tool {
		case "sips":
			args = []string{"-s", "format", "jpeg", path, "--out", out}
		case "heif-convert":
			args = []string{path, out}
		default:
			args = []string{path, out}
		}
		if _, err := e.runner.Run(ctx, tool, args...); err != nil {
			e.log.Warn("ocr.heic.convert_failed", "tool", tool, "error", err)
			continue
		}
		e.log.Debug("ocr.heic.converted", "tool", tool)
		return out, nil
	}
	return "", fmt.Errorf("no HEIC converter available for %s", path)
}
