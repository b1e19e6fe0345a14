// Package normalize canonicalizes a raw extracted record: synonym keys fold
// into schema field names, dates re-render as MM/DD/YYYY, names and cities
// get title case, and the output always carries the full schema key set.
package normalize

import (
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/KCD1111/DMVREAL/internal/extract"
	"github.com/KCD1111/DMVREAL/internal/schema"
)

// keySynonyms maps alternate key spellings (lowercased, separators removed
// before lookup is attempted on the raw form) to canonical field names.
var keySynonyms = map[string]string{
	"gender":         schema.FieldSex,
	"dob":            schema.FieldDateOfBirth,
	"birth_date":     schema.FieldDateOfBirth,
	"birthdate":      schema.FieldDateOfBirth,
	"dateofbirth":    schema.FieldDateOfBirth,
	"expiry":         schema.FieldExpirationDate,
	"expiry_date":    schema.FieldExpirationDate,
	"exp_date":       schema.FieldExpirationDate,
	"expiration":     schema.FieldExpirationDate,
	"dln":            schema.FieldLicenseNumber,
	"license_no":     schema.FieldLicenseNumber,
	"licence_number": schema.FieldLicenseNumber,
	"address":        schema.FieldStreetAddress,
	"street":         schema.FieldStreetAddress,
	"zip":            schema.FieldZipCode,
	"zipcode":        schema.FieldZipCode,
	"postal_code":    schema.FieldZipCode,
	"first":          schema.FieldFirstName,
	"last":           schema.FieldLastName,
	"surname":        schema.FieldLastName,
	"given_name":     schema.FieldFirstName,
	"family_name":    schema.FieldLastName,
}

// nameKeys are combined-name keys that get split into first/last.
var nameKeys = map[string]bool{"full_name": true, "name": true}

// titleCase renders a value in title case. A fresh Caser per call; Casers
// are stateful and not safe to share across goroutines.
func titleCase(s string) string {
	return cases.Title(language.AmericanEnglish).String(strings.ToLower(s))
}

// Normalizer canonicalizes records against a field registry.
type Normalizer struct {
	reg *schema.Registry
	log *slog.Logger
}

func New(reg *schema.Registry, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{reg: reg, log: logger}
}

// Normalize returns a new record keyed exactly by the registry's field
// names. Unrecognized input keys are dropped; missing fields come out nil.
// The input record is not modified.
func (n *Normalizer) Normalize(raw extract.Record) extract.Record {
	out := make(extract.Record, n.reg.Len())
	for _, name := range n.reg.FieldNames() {
		out[name] = nil
	}

	for key, val := range raw {
		canon, ok := n.canonicalKey(key)
		if !ok {
			if nameKeys[normKey(key)] {
				n.splitName(val, out)
				continue
			}
			n.log.Debug("normalize.drop_key", "key", key)
			continue
		}
		// A canonical key beats a synonym when both appear; map order must
		// not decide it.
		if out[canon] != nil && normKey(key) != canon {
			continue
		}
		if s, isStr := val.(string); isStr {
			out[canon] = n.normalizeValue(canon, s)
		} else if val != nil {
			out[canon] = val
		}
	}
	return out
}

func (n *Normalizer) canonicalKey(key string) (string, bool) {
	k := normKey(key)
	if n.reg.Has(k) {
		return k, true
	}
	if canon, ok := keySynonyms[k]; ok {
		return canon, true
	}
	return "", false
}

func normKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.ReplaceAll(k, " ", "_")
	k = strings.ReplaceAll(k, "-", "_")
	return k
}

// splitName breaks a combined name value into first and last on the first
// space. A single token becomes the first name.
func (n *Normalizer) splitName(val any, out extract.Record) {
	s, ok := val.(string)
	if !ok {
		return
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	parts := strings.Fields(s)
	if out[schema.FieldFirstName] == nil {
		out[schema.FieldFirstName] = titleCase(parts[0])
	}
	if len(parts) > 1 && out[schema.FieldLastName] == nil {
		out[schema.FieldLastName] = titleCase(strings.Join(parts[1:], " "))
	}
}

func (n *Normalizer) normalizeValue(field, raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	switch field {
	case schema.FieldFirstName, schema.FieldLastName, schema.FieldCity:
		return titleCase(s)
	case schema.FieldDateOfBirth, schema.FieldExpirationDate:
		return NormalizeDate(s)
	case schema.FieldSex:
		return normalizeSex(s)
	case schema.FieldState:
		return strings.ToUpper(s)
	case schema.FieldLicenseNumber:
		return normalizeLicense(s)
	case schema.FieldZipCode:
		return normalizeZip(s)
	default:
		return s
	}
}

// normalizeSex folds spelled-out values to the single-letter code. Anything
// else passes through for validation to flag.
func normalizeSex(s string) string {
	switch strings.ToUpper(s) {
	case "M", "MALE":
		return "M"
	case "F", "FEMALE":
		return "F"
	}
	return s
}

// normalizeLicense uppercases and strips everything non-alphanumeric, so
// "D123-456-789" and "d123 456 789" both come out "D123456789".
func normalizeLicense(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return s
	}
	return b.String()
}

// normalizeZip keeps 5-digit and ZIP+4 forms, collapsing stray separators.
// Unrecognized shapes pass through unchanged.
func normalizeZip(s string) string {
	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	switch len(digits) {
	case 5:
		return string(digits)
	case 9:
		return string(digits[:5]) + "-" + string(digits[5:])
	}
	return s
}
