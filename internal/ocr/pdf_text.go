package ocr

import (
	"fmt"
	"strings"

	"rsc.io/pdf"
)

// extractTextLayer reads the embedded PDF text layer directly, without any
// external tool. Scanned licenses usually have no layer; digitally produced
// ones sometimes do.
func extractTextLayer(path string) (_ string, err error) {
	defer func() {
		// rsc.io/pdf panics on malformed files.
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf text layer: %v", r)
		}
	}()

	doc, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= doc.NumPage(); i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		var lastY float64
		for _, t := range page.Content().Text {
			if lastY != 0 && t.Y != lastY {
				b.WriteByte('\n')
			} else if b.Len() > 0 && t.Y == lastY {
				// Words on one line arrive as separate fragments.
				b.WriteByte(' ')
			}
			b.WriteString(t.S)
			lastY = t.Y
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}
