package extract

import (
	"context"

	"github.com/KCD1111/DMVREAL/internal/schema"
)

// Record is a raw extracted record: field-like keys (possibly synonyms,
// possibly mis-cased) mapped to raw values. Values are strings or nil; the
// normalizer owns key canonicalization and value coercion.
type Record map[string]any

// Confidence maps field names to self-reported scores in [0,1].
type Confidence map[string]float64

// NeutralConfidence fills confidence entries the model omitted.
const NeutralConfidence = 0.5

// Extraction is one extractor's candidate result for a document.
type Extraction struct {
	Fields     Record
	Confidence Confidence
	Method     string // "llm" | "rules" | "null"
}

// FieldExtractor is Stage 2: raw OCR text -> candidate field record.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, ocrText string) (Extraction, error)
}

// NullExtraction returns the all-null, zero-confidence record over the full
// schema key set. Used when every extraction strategy has failed.
func NullExtraction(reg *schema.Registry) Extraction {
	fields := make(Record, reg.Len())
	conf := make(Confidence, reg.Len())
	for _, name := range reg.FieldNames() {
		fields[name] = nil
		conf[name] = 0
	}
	return Extraction{Fields: fields, Confidence: conf, Method: "null"}
}
