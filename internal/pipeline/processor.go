// Package pipeline chains the processing stages for one uploaded document:
// text recognition, field extraction with fallback, normalization, schema
// validation, persistence.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/KCD1111/DMVREAL/constants"
	"github.com/KCD1111/DMVREAL/internal/extract"
	"github.com/KCD1111/DMVREAL/internal/normalize"
	"github.com/KCD1111/DMVREAL/internal/ocr"
	"github.com/KCD1111/DMVREAL/internal/schema"
	"github.com/KCD1111/DMVREAL/internal/store"
	"github.com/KCD1111/DMVREAL/internal/validate"
)

// Result carries everything one document run produced.
type Result struct {
	SessionID        string
	LicenseID        string
	RawText          string
	OCRConfidence    float64
	ExtractedData    extract.Record
	Confidence       extract.Confidence
	Method           string
	NormalizedData   extract.Record
	ValidationReport *validate.Report
	ProcessingTimeMs int64
}

// Processor wires the stages together. Store may be nil for one-shot CLI
// runs that do not persist.
type Processor struct {
	OCR        *ocr.Extractor
	Extractor  extract.FieldExtractor
	Normalizer *normalize.Normalizer
	Validator  *validate.Validator
	Registry   *schema.Registry
	Store      store.Store
	Log        *slog.Logger
	now        func() time.Time
}

func New(o *ocr.Extractor, ex extract.FieldExtractor, n *normalize.Normalizer, v *validate.Validator, reg *schema.Registry, st store.Store, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		OCR:        o,
		Extractor:  ex,
		Normalizer: n,
		Validator:  v,
		Registry:   reg,
		Store:      st,
		Log:        logger,
		now:        time.Now,
	}
}

// ProcessFile runs the full pipeline on one file. OCR failure is terminal
// and recorded as a failed session; once extraction has run, a Result is
// always returned even when the record is entirely null.
func (p *Processor) ProcessFile(ctx context.Context, path, filename, ext string) (*Result, error) {
	start := p.now()
	sessionID := uuid.NewString()
	log := p.Log.With("session_id", sessionID, "filename", filename)
	log.Info("pipeline.start")

	sess := &store.Session{
		ID:       sessionID,
		Filename: filename,
		FileType: constants.MapExtToFormat(ext),
		Status:   constants.SessionProcessing,
	}
	if p.Store != nil {
		if err := p.Store.CreateSession(ctx, sess); err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
	}

	ocrRes, err := p.OCR.ExtractFile(ctx, path, ext)
	if err != nil {
		p.failSession(ctx, sess, start, err)
		return nil, fmt.Errorf("text recognition: %w", err)
	}
	log.Info("pipeline.ocr.done", "source", ocrRes.Source, "text_len", len(ocrRes.Text), "confidence", ocrRes.Confidence)

	ex, err := p.Extractor.ExtractFields(ctx, ocrRes.Text)
	if err != nil {
		p.failSession(ctx, sess, start, err)
		return nil, fmt.Errorf("field extraction: %w", err)
	}
	log.Info("pipeline.extract.done", "method", ex.Method)

	normalized := p.Normalizer.Normalize(ex.Fields)
	report := p.Validator.Validate(normalized, ex.Confidence)
	log.Info("pipeline.validate.done", "defects", report.DefectCount(), "warnings", len(report.Warnings))

	elapsed := p.now().Sub(start).Milliseconds()
	res := &Result{
		SessionID:        sessionID,
		RawText:          ocrRes.Text,
		OCRConfidence:    ocrRes.Confidence,
		ExtractedData:    ex.Fields,
		Confidence:       ex.Confidence,
		Method:           ex.Method,
		NormalizedData:   normalized,
		ValidationReport: report,
		ProcessingTimeMs: elapsed,
	}

	if p.Store != nil {
		if err := p.persist(ctx, sess, res); err != nil {
			log.Error("pipeline.persist_failed", "error", err)
			return res, fmt.Errorf("persist result: %w", err)
		}
	}
	log.Info("pipeline.done", "elapsed_ms", elapsed)
	return res, nil
}

func (p *Processor) persist(ctx context.Context, sess *store.Session, res *Result) error {
	sess.RawOCRText = res.RawText
	sess.OCRConfidence = res.OCRConfidence
	sess.ProcessingTimeMs = res.ProcessingTimeMs
	sess.Status = constants.SessionCompleted
	if err := p.Store.UpdateSession(ctx, sess); err != nil {
		return err
	}

	confJSON, err := json.Marshal(res.Confidence)
	if err != nil {
		return fmt.Errorf("marshal confidence: %w", err)
	}
	valJSON, err := json.Marshal(res.ValidationReport)
	if err != nil {
		return fmt.Errorf("marshal validation report: %w", err)
	}

	lic := &store.License{
		ID:                uuid.NewString(),
		SessionID:         sess.ID,
		FirstName:         strField(res.NormalizedData, schema.FieldFirstName),
		LastName:          strField(res.NormalizedData, schema.FieldLastName),
		LicenseNumber:     strField(res.NormalizedData, schema.FieldLicenseNumber),
		DateOfBirth:       strField(res.NormalizedData, schema.FieldDateOfBirth),
		ExpirationDate:    strField(res.NormalizedData, schema.FieldExpirationDate),
		StreetAddress:     strField(res.NormalizedData, schema.FieldStreetAddress),
		City:              strField(res.NormalizedData, schema.FieldCity),
		State:             strField(res.NormalizedData, schema.FieldState),
		ZipCode:           strField(res.NormalizedData, schema.FieldZipCode),
		Sex:               strField(res.NormalizedData, schema.FieldSex),
		ExtractionMethod:  res.Method,
		OverallConfidence: overallConfidence(res.Confidence),
		ConfidenceJSON:    string(confJSON),
		ValidationJSON:    string(valJSON),
	}
	if err := p.Store.SaveLicense(ctx, lic); err != nil {
		return err
	}
	res.LicenseID = lic.ID
	return nil
}

func (p *Processor) failSession(ctx context.Context, sess *store.Session, start time.Time, cause error) {
	if p.Store == nil {
		return
	}
	sess.Status = constants.SessionFailed
	sess.ErrorMessage = cause.Error()
	sess.ProcessingTimeMs = p.now().Sub(start).Milliseconds()
	if err := p.Store.UpdateSession(ctx, sess); err != nil {
		p.Log.Error("pipeline.fail_session_update", "session_id", sess.ID, "error", err)
	}
}

// overallConfidence is the mean of the per-field scores, 0 when none exist.
func overallConfidence(conf extract.Confidence) float64 {
	if len(conf) == 0 {
		return 0
	}
	var sum float64
	for _, v := range conf {
		sum += v
	}
	return sum / float64(len(conf))
}

func strField(rec extract.Record, name string) *string {
	s, ok := rec[name].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}
