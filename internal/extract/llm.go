package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/KCD1111/DMVREAL/internal/common"
	"github.com/KCD1111/DMVREAL/internal/generate"
	"github.com/KCD1111/DMVREAL/internal/schema"
)

// ModelExtractor asks a generative-model collaborator for a structured field
// record. Any collaborator failure, or a response with no usable candidate,
// surfaces as ErrExtractionParse so callers can fall back to rules.
type ModelExtractor struct {
	client   generate.Client
	tmpl     PromptTemplate
	reg      *schema.Registry
	compiled *jsonschema.Schema
	// correct runs the deterministic cross-check of model output against the
	// raw OCR text before the result is returned.
	correct bool
	log     *slog.Logger
}

// NewModelExtractor wires a generate.Client into the extraction pipeline.
// Pass correct=false to skip the post-hoc text cross-check.
func NewModelExtractor(client generate.Client, tmpl PromptTemplate, reg *schema.Registry, correct bool, logger *slog.Logger) (*ModelExtractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	compiled, err := CompileResponseSchema(reg)
	if err != nil {
		return nil, err
	}
	return &ModelExtractor{
		client:   client,
		tmpl:     tmpl,
		reg:      reg,
		compiled: compiled,
		correct:  correct,
		log:      logger,
	}, nil
}

func (e *ModelExtractor) ExtractFields(ctx context.Context, ocrText string) (Extraction, error) {
	reqID := uuid.NewString()
	log := e.log.With("req_id", reqID)
	log.Info("llm.extract.start", "text_len", len(ocrText))

	raw, err := e.client.Generate(ctx, e.tmpl.Build(ocrText))
	if err != nil {
		log.Warn("llm.extract.call_failed", "error", err)
		return Extraction{}, fmt.Errorf("%w: %v", common.ErrExtractionParse, err)
	}

	attempts := parseCandidates(raw, e.tmpl)
	chosen, ok := selectCandidate(attempts)
	if !ok {
		for _, a := range attempts {
			log.Debug("llm.extract.candidate_rejected", "status", a.Status, "reason", a.Reason)
		}
		log.Warn("llm.extract.no_candidate", "blocks", len(attempts))
		return Extraction{}, fmt.Errorf("%w: no parseable candidate in response", common.ErrExtractionParse)
	}
	if err := validateAttempt(e.compiled, chosen); err != nil {
		// Non-string scalars are kept for downstream type reporting, so a
		// schema miss here is informational.
		log.Warn("llm.extract.schema_mismatch", "error", err)
	}

	ex := ensureShape(chosen, e.reg)
	if e.correct {
		ex = CorrectAgainstText(ex, ocrText)
	}
	log.Info("llm.extract.done", "score", chosen.Score, "candidates", len(attempts))
	return ex, nil
}
