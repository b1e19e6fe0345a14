// Package validate checks a normalized record against the field schema and
// produces a structured defect report. Validation never mutates the record
// and never fails; every defect is reported, not raised.
package validate

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KCD1111/DMVREAL/internal/extract"
	"github.com/KCD1111/DMVREAL/internal/schema"
)

// DefaultLowConfidenceThreshold marks per-field confidence scores that get a
// warning in the report.
const DefaultLowConfidenceThreshold = 0.7

const (
	minAgeYears = 16
	maxAgeYears = 120
)

// Validator checks records against a registry. The clock is injectable so
// age and expiry warnings are testable.
type Validator struct {
	reg                    *schema.Registry
	lowConfidenceThreshold float64
	now                    func() time.Time
	log                    *slog.Logger
}

type Option func(*Validator)

func WithNow(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

func WithLowConfidenceThreshold(t float64) Option {
	return func(v *Validator) { v.lowConfidenceThreshold = t }
}

func New(reg *schema.Registry, logger *slog.Logger, opts ...Option) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Validator{
		reg:                    reg,
		lowConfidenceThreshold: DefaultLowConfidenceThreshold,
		now:                    time.Now,
		log:                    logger,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Validate walks the registry's fields in order and applies, per field:
// required check, type check, format check, allowed-values check. A field
// failing one check still runs the later ones where the value permits, so a
// malformed license number that is also not in an allowed set reports both.
func (v *Validator) Validate(rec extract.Record, conf extract.Confidence) *Report {
	rep := NewReport()

	for _, f := range v.reg.Fields() {
		val, present := rec[f.Name]
		if !present || val == nil || isEmptyString(val) {
			if f.Required {
				rep.MissingFields = append(rep.MissingFields, f.Name)
			}
			continue
		}

		s, isStr := val.(string)
		if !isStr {
			rep.TypeMismatches = append(rep.TypeMismatches, TypeMismatch{
				Field:    f.Name,
				Expected: "string",
				Actual:   fmt.Sprintf("%T", val),
			})
			continue
		}

		v.checkFormat(f, s, rep)
		v.checkAllowed(f, s, rep)
	}

	v.addDateWarnings(rec, rep)
	v.addConfidenceWarnings(conf, rep)

	v.log.Debug("validate.done",
		"defects", rep.DefectCount(),
		"warnings", len(rep.Warnings))
	return rep
}

func (v *Validator) checkFormat(f schema.Field, s string, rep *Report) {
	switch f.Format {
	case "":
		return
	case schema.FormatDateUS:
		if _, err := time.Parse("01/02/2006", s); err != nil {
			rep.FormatErrors = append(rep.FormatErrors, FormatError{
				Field:          f.Name,
				ExpectedFormat: schema.FormatDateUS,
				ActualValue:    s,
			})
		}
	case schema.FormatAlphanumeric:
		if !isAlphanumeric(s) {
			rep.FormatErrors = append(rep.FormatErrors, FormatError{
				Field:          f.Name,
				ExpectedFormat: schema.FormatAlphanumeric,
				ActualValue:    s,
			})
		}
	}
}

func (v *Validator) checkAllowed(f schema.Field, s string, rep *Report) {
	if len(f.AllowedValues) == 0 {
		return
	}
	for _, a := range f.AllowedValues {
		if s == a {
			return
		}
	}
	rep.InvalidValues = append(rep.InvalidValues, InvalidValue{
		Field:         f.Name,
		ExpectedOneOf: f.AllowedValues,
		ActualValue:   s,
	})
}

// addDateWarnings flags implausible ages and already-expired licenses. Both
// are warnings: the dates may be real, so they are not hard defects.
func (v *Validator) addDateWarnings(rec extract.Record, rep *Report) {
	now := v.now()

	if dob, ok := parsedDate(rec[schema.FieldDateOfBirth]); ok {
		age := yearsBetween(dob, now)
		if age < minAgeYears {
			rep.Warnings = append(rep.Warnings, Warning{
				Field:   schema.FieldDateOfBirth,
				Message: fmt.Sprintf("holder age %d is below the minimum licensing age %d", age, minAgeYears),
			})
		} else if age > maxAgeYears {
			rep.Warnings = append(rep.Warnings, Warning{
				Field:   schema.FieldDateOfBirth,
				Message: fmt.Sprintf("holder age %d exceeds %d, likely an OCR misread", age, maxAgeYears),
			})
		}
	}

	if exp, ok := parsedDate(rec[schema.FieldExpirationDate]); ok && exp.Before(now) {
		rep.Warnings = append(rep.Warnings, Warning{
			Field:   schema.FieldExpirationDate,
			Message: "license is expired",
		})
	}
}

func (v *Validator) addConfidenceWarnings(conf extract.Confidence, rep *Report) {
	for _, name := range v.reg.FieldNames() {
		score, ok := conf[name]
		if !ok {
			continue
		}
		if score < v.lowConfidenceThreshold {
			rep.Warnings = append(rep.Warnings, Warning{
				Field:   name,
				Message: fmt.Sprintf("extraction confidence %.2f below %.2f", score, v.lowConfidenceThreshold),
			})
		}
	}
}

func parsedDate(val any) (time.Time, bool) {
	s, ok := val.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse("01/02/2006", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func yearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.Month() < from.Month() || (to.Month() == from.Month() && to.Day() < from.Day()) {
		years--
	}
	return years
}

func isEmptyString(val any) bool {
	s, ok := val.(string)
	return ok && strings.TrimSpace(s) == ""
}

func isAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
