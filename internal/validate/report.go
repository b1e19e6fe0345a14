package validate

// Report is the structured defect report for one normalized record. Every
// slice is non-nil so JSON consumers always see arrays.
type Report struct {
	MissingFields   []string         `json:"missing_fields"`
	TypeMismatches  []TypeMismatch   `json:"type_mismatches"`
	FormatErrors    []FormatError    `json:"format_errors"`
	ValueOutOfRange []RangeViolation `json:"value_out_of_range"`
	InvalidValues   []InvalidValue   `json:"invalid_values"`
	Warnings        []Warning        `json:"warnings"`
}

type TypeMismatch struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

type FormatError struct {
	Field          string `json:"field"`
	ExpectedFormat string `json:"expected_format"`
	ActualValue    string `json:"actual_value"`
}

type RangeViolation struct {
	Field string `json:"field"`
	Min   string `json:"min,omitempty"`
	Max   string `json:"max,omitempty"`
	Value string `json:"value"`
}

type InvalidValue struct {
	Field         string   `json:"field"`
	ExpectedOneOf []string `json:"expected_one_of"`
	ActualValue   string   `json:"actual_value"`
}

type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewReport returns an empty report with all slices allocated.
func NewReport() *Report {
	return &Report{
		MissingFields:   []string{},
		TypeMismatches:  []TypeMismatch{},
		FormatErrors:    []FormatError{},
		ValueOutOfRange: []RangeViolation{},
		InvalidValues:   []InvalidValue{},
		Warnings:        []Warning{},
	}
}

// Clean reports whether the record passed with no defects. Warnings do not
// count against cleanliness.
func (r *Report) Clean() bool {
	return len(r.MissingFields) == 0 &&
		len(r.TypeMismatches) == 0 &&
		len(r.FormatErrors) == 0 &&
		len(r.ValueOutOfRange) == 0 &&
		len(r.InvalidValues) == 0
}

// DefectCount totals the hard defects across all categories.
func (r *Report) DefectCount() int {
	return len(r.MissingFields) + len(r.TypeMismatches) + len(r.FormatErrors) +
		len(r.ValueOutOfRange) + len(r.InvalidValues)
}
