package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/KCD1111/DMVREAL/internal/schema"
)

// Config holds knobs for the rule-based extractor.
type Config struct {
	// LicensePrefix is prepended to every rule-matched license number.
	// This reproduces a jurisdiction-specific prefix convention carried by
	// the upstream data; set it to "" to store the captured digits as-is.
	LicensePrefix string
}

// DefaultLicensePrefix is the historical prefix applied to rule matches.
const DefaultLicensePrefix = "S"

var (
	reLicense = regexp.MustCompile(`(?i)(?:DLN|Driver(?:'|’)?s?\s+License|License)\b[\s\S]*?([0-9]{3}-[0-9]{3}-[0-9]{3})`)
	reDOB     = regexp.MustCompile(`(?i)(?:Date of Birth|DOB|3008)[:\s]*(\d{1,4}[-/]\d{1,2}[-/]\d{2,4})`)
	reExp     = regexp.MustCompile(`(?i)(?:Expiration Date|Expiry|EXP|exe)[:\s]*(\d{1,4}[-/]\d{1,2}[-/]\d{2,4})`)
	reSex     = regexp.MustCompile(`(?i)Sex[:\s]*(Male|Female|M|F)\b`)

	// Street stays on one line: spaces only, so digits ending the previous
	// line cannot glue onto the house number.
	streetPat = `(\d{1,6} +[A-Z0-9 ]+?(?:ST|STREET|RD|ROAD|AVE|AVENUE|BLVD|BOULEVARD|DR|DRIVE|LN|LANE|CT|COURT|HWY|PKWY|PL|TER|WAY|CIR)\.?)`

	// Combined pass: street, city, 2-letter state, 5(+4) zip, commas optional.
	reFullAddress = regexp.MustCompile(`(?i)` + streetPat + `\s*,?\s*([A-Z][A-Za-z\s]+?)\s*,?\s*([A-Z]{2})\s+(\d{5}(?:-\d{4})?)`)
	reStreetOnly  = regexp.MustCompile(`(?i)` + streetPat)
	reCityStZip   = regexp.MustCompile(`([A-Z][A-Za-z\s]+?)\s*,?\s*([A-Z]{2})\s+(\d{5}(?:-\d{4})?)`)
	reBareStZip   = regexp.MustCompile(`\b([A-Z]{2})\s+(\d{5}(?:-\d{4})?)\b`)

	// First name: label-anchored, plus the "~ +NAME" artifact some scans
	// carry in place of the label.
	reFirstName = regexp.MustCompile(`(?i)(?:First\s*Name|FN)[:\s]+([A-Za-z]+)|~\s*\+([A-Z]+)`)

	// Last name heuristic: two uppercase words at the start of a line.
	reUpperPair = regexp.MustCompile(`(?m)(?:^|\n)[^A-Za-z\n]*([A-Z]{2,} [A-Z]{2,})`)
)

// RuleExtractor pulls field candidates out of raw OCR text with an ordered
// list of independent pattern rules. A rule that finds nothing is skipped;
// no rule failure is fatal. Only the first match per rule is used.
type RuleExtractor struct {
	cfg Config
	log *slog.Logger
}

func NewRuleExtractor(cfg Config, logger *slog.Logger) *RuleExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleExtractor{cfg: cfg, log: logger}
}

// ExtractFields applies the pattern rules in a fixed order. It never fails;
// an empty record means no rule matched. Rule-based extraction reports no
// confidence map.
func (e *RuleExtractor) ExtractFields(_ context.Context, text string) (Extraction, error) {
	fields := make(Record)

	if m := reLicense.FindStringSubmatch(text); m != nil {
		fields[schema.FieldLicenseNumber] = e.cfg.LicensePrefix + m[1]
	}
	if m := reDOB.FindStringSubmatch(text); m != nil {
		fields[schema.FieldDateOfBirth] = m[1]
	}
	if m := reSex.FindStringSubmatch(text); m != nil {
		fields[schema.FieldSex] = m[1]
	}
	if m := reExp.FindStringSubmatch(text); m != nil {
		fields[schema.FieldExpirationDate] = m[1]
	}

	e.extractAddress(text, fields)

	if m := reFirstName.FindStringSubmatch(text); m != nil {
		if m[1] != "" {
			fields[schema.FieldFirstName] = m[1]
		} else {
			fields[schema.FieldFirstName] = m[2]
		}
	}
	if last := findLastName(text); last != "" {
		fields[schema.FieldLastName] = last
	}

	e.log.Debug("rules.extract.done", "fields", len(fields))
	return Extraction{Fields: fields, Confidence: Confidence{}, Method: "rules"}, nil
}

// extractAddress tries the combined street/city/state/zip pattern first and
// degrades to independent passes when the combined match fails.
func (e *RuleExtractor) extractAddress(text string, fields Record) {
	if m := reFullAddress.FindStringSubmatch(text); m != nil {
		fields[schema.FieldStreetAddress] = strings.TrimSpace(m[1])
		fields[schema.FieldCity] = strings.TrimSpace(m[2])
		fields[schema.FieldState] = strings.ToUpper(strings.TrimSpace(m[3]))
		fields[schema.FieldZipCode] = strings.TrimSpace(m[4])
		return
	}

	// Pass 2: street alone, then city/state/zip in the window after it.
	loc := reStreetOnly.FindStringSubmatchIndex(text)
	if loc != nil {
		fields[schema.FieldStreetAddress] = strings.TrimSpace(text[loc[2]:loc[3]])
		window := text[loc[1]:]
		if m := reCityStZip.FindStringSubmatch(window); m != nil {
			fields[schema.FieldCity] = strings.TrimSpace(m[1])
			fields[schema.FieldState] = strings.ToUpper(strings.TrimSpace(m[2]))
			fields[schema.FieldZipCode] = strings.TrimSpace(m[3])
			return
		}
	}

	// Pass 3: bare "STATE ZIP" anywhere.
	if _, ok := fields[schema.FieldState]; !ok {
		if m := reBareStZip.FindStringSubmatch(text); m != nil {
			fields[schema.FieldState] = m[1]
			fields[schema.FieldZipCode] = m[2]
		}
	}
}

// findLastName returns the first two-uppercase-word pair that is not
// immediately followed by the word LICENSE on the same line.
func findLastName(text string) string {
	for _, m := range reUpperPair.FindAllStringSubmatchIndex(text, -1) {
		pair := text[m[2]:m[3]]
		rest := text[m[3]:]
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			rest = rest[:i]
		}
		if strings.Contains(rest, "LICENSE") || strings.Contains(pair, "LICENSE") {
			continue
		}
		return pair
	}
	return ""
}
