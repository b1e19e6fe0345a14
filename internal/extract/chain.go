package extract

import (
	"context"
	"errors"
	"log/slog"

	"github.com/KCD1111/DMVREAL/internal/common"
	"github.com/KCD1111/DMVREAL/internal/schema"
)

// Chain runs the primary extractor and falls back to the secondary when the
// primary's output cannot be used. Only ErrExtractionParse triggers the
// fallback; infrastructure errors propagate. When every strategy is
// exhausted the chain returns the all-null record rather than an error, so
// the rest of the pipeline still produces a session.
type Chain struct {
	Primary   FieldExtractor
	Secondary FieldExtractor
	Registry  *schema.Registry
	Log       *slog.Logger
}

func NewChain(primary, secondary FieldExtractor, reg *schema.Registry, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{Primary: primary, Secondary: secondary, Registry: reg, Log: logger}
}

func (c *Chain) ExtractFields(ctx context.Context, ocrText string) (Extraction, error) {
	if c.Primary != nil {
		ex, err := c.Primary.ExtractFields(ctx, ocrText)
		if err == nil {
			return ex, nil
		}
		if !errors.Is(err, common.ErrExtractionParse) {
			return Extraction{}, err
		}
		c.Log.Warn("extract.fallback", "error", err)
	}

	if c.Secondary != nil {
		ex, err := c.Secondary.ExtractFields(ctx, ocrText)
		if err == nil {
			return ex, nil
		}
		if !errors.Is(err, common.ErrExtractionParse) {
			return Extraction{}, err
		}
		c.Log.Warn("extract.fallback_failed", "error", err)
	}

	c.Log.Warn("extract.null_record")
	return NullExtraction(c.Registry), nil
}
