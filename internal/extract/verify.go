package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/KCD1111/DMVREAL/internal/schema"
)

// Deterministic cross-check of model output against the raw OCR text. A
// model value that is implausible AND contradicted by a direct pattern match
// in the text is replaced by the matched value, and its confidence reset to
// neutral. Plausible values are never touched.

var (
	reLicenseDirect = regexp.MustCompile(`[0-9]{3}-[0-9]{3}-[0-9]{3}`)
	reDateYear      = regexp.MustCompile(`(\d{4})`)

	streetSuffixes = []string{"ST", "STREET", "RD", "ROAD", "AVE", "AVENUE", "BLVD", "DR", "DRIVE", "LN", "LANE", "CT", "COURT"}
)

// CorrectAgainstText returns ex with implausible model values overridden by
// direct text matches where available.
func CorrectAgainstText(ex Extraction, ocrText string) Extraction {
	if lic, ok := ex.Fields[schema.FieldLicenseNumber].(string); ok && implausibleLicense(lic) {
		if m := reLicenseDirect.FindString(ocrText); m != "" {
			ex.Fields[schema.FieldLicenseNumber] = m
			ex.Confidence[schema.FieldLicenseNumber] = NeutralConfidence
		}
	}

	correctDate(&ex, ocrText, schema.FieldDateOfBirth, reDOB)
	correctDate(&ex, ocrText, schema.FieldExpirationDate, reExp)

	if sex, ok := ex.Fields[schema.FieldSex].(string); ok && strings.TrimSpace(sex) != "" {
		if m := reSex.FindStringSubmatch(ocrText); m != nil {
			want := strings.ToUpper(m[1][:1])
			if !strings.EqualFold(strings.TrimSpace(sex)[:1], want) {
				ex.Fields[schema.FieldSex] = want
				ex.Confidence[schema.FieldSex] = NeutralConfidence
			}
		}
	}
	return ex
}

func correctDate(ex *Extraction, ocrText, field string, labelRe *regexp.Regexp) {
	v, ok := ex.Fields[field].(string)
	if !ok || !implausibleDate(v) {
		return
	}
	if m := labelRe.FindStringSubmatch(ocrText); m != nil {
		ex.Fields[field] = m[1]
		ex.Confidence[field] = NeutralConfidence
	}
}

// implausibleLicense flags values that cannot be a license number: embedded
// spaces, excessive length, or street-suffix tokens (a common hallucination
// is echoing the address line).
func implausibleLicense(v string) bool {
	v = strings.TrimSpace(v)
	if len(v) > 20 || strings.ContainsRune(v, ' ') {
		return true
	}
	up := strings.ToUpper(v)
	for _, suf := range streetSuffixes {
		if strings.Contains(up, suf) && len(suf) > 2 {
			return true
		}
	}
	return false
}

// implausibleDate flags dates whose 4-digit year is outside 1900..2100.
func implausibleDate(v string) bool {
	m := reDateYear.FindStringSubmatch(v)
	if m == nil {
		return false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return false
	}
	return year < 1900 || year > 2100
}
