package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/KCD1111/DMVREAL/internal/schema"
)

// BuildResponseSchema returns the JSON Schema the collaborator's answer must
// satisfy after parsing: every canonical field nullable-string, confidence an
// object of 0..1 numbers.
func BuildResponseSchema(reg *schema.Registry) map[string]any {
	props := make(map[string]any, reg.Len()+1)
	confProps := make(map[string]any, reg.Len())
	for _, name := range reg.FieldNames() {
		props[name] = map[string]any{"type": []string{"string", "null"}}
		confProps[name] = map[string]any{
			"type":    "number",
			"minimum": 0,
			"maximum": 1,
		}
	}
	props["confidence"] = map[string]any{
		"type":                 "object",
		"properties":           confProps,
		"additionalProperties": false,
	}
	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
}

// CompileResponseSchema compiles the response schema once for reuse.
func CompileResponseSchema(reg *schema.Registry) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(BuildResponseSchema(reg))
	if err != nil {
		return nil, fmt.Errorf("marshal response schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("response.schema.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile("response.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}
	return compiled, nil
}

// validateAttempt checks a parsed attempt against the compiled schema.
// Unknown keys were already dropped during parsing, so a failure here means
// a genuinely malformed value (for example confidence outside 0..1).
func validateAttempt(compiled *jsonschema.Schema, a ParseAttempt) error {
	doc := make(map[string]any, len(a.Fields)+1)
	for k, v := range a.Fields {
		doc[k] = v
	}
	if len(a.Confidence) > 0 {
		conf := make(map[string]any, len(a.Confidence))
		for k, v := range a.Confidence {
			conf[k] = v
		}
		doc["confidence"] = conf
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("response schema: %w", err)
	}
	return nil
}
