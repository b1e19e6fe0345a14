package extract

import "strings"

// PromptTemplate describes the instruction sent to the generative-model
// collaborator. The example names are embedded in the instruction block and
// are also what the response parser uses to detect a template echo.
type PromptTemplate struct {
	// MaxChars bounds the OCR text window embedded in the prompt.
	MaxChars int
	// ExampleFirstName/ExampleLastName appear in the instructional example.
	// A candidate whose names exactly equal them is rejected as an echo.
	ExampleFirstName string
	ExampleLastName  string
}

// DefaultPromptTemplate matches the deployed extraction prompt.
func DefaultPromptTemplate() PromptTemplate {
	return PromptTemplate{
		MaxChars:         800,
		ExampleFirstName: "John",
		ExampleLastName:  "Smith",
	}
}

// Build composes the extraction prompt around a truncated OCR text window.
func (t PromptTemplate) Build(ocrText string) string {
	window := ocrText
	if t.MaxChars > 0 && len(window) > t.MaxChars {
		window = window[:t.MaxChars]
	}

	var b strings.Builder
	b.WriteString("You are a data extraction assistant. Extract driver's license information from OCR text and return ONLY valid JSON. No explanations, no extra text.\n\n")
	b.WriteString("Extract the following fields from this driver's license OCR text:\n\n")
	b.WriteString(window)
	b.WriteString("\n\nReturn ONLY this JSON structure (use null for missing fields):\n")
	b.WriteString(`{
  "first_name": "` + t.ExampleFirstName + `",
  "last_name": "` + t.ExampleLastName + `",
  "license_number": "string or null",
  "date_of_birth": "MM/DD/YYYY or null",
  "expiration_date": "MM/DD/YYYY or null",
  "street_address": "string or null",
  "city": "string or null",
  "state": "2-letter code or null",
  "zip_code": "string or null",
  "sex": "M or F or null",
  "confidence": {
    "first_name": 0.9,
    "last_name": 0.9,
    "license_number": 0.9,
    "date_of_birth": 0.9,
    "expiration_date": 0.9,
    "street_address": 0.9,
    "city": 0.9,
    "state": 0.9,
    "zip_code": 0.9,
    "sex": 0.9
  }
}`)
	return b.String()
}
