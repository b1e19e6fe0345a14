package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/KCD1111/DMVREAL/internal/schema"
)

// ParseStatus tags the outcome of parsing one candidate JSON block.
type ParseStatus int

const (
	ParsedOK ParseStatus = iota
	MalformedSyntax
	RejectedShape
	RejectedPlaceholder
)

// ParseAttempt is the result of parsing a single candidate block from the
// collaborator's response. Score counts non-null canonical leaf fields and
// drives candidate selection.
type ParseAttempt struct {
	Status     ParseStatus
	Fields     Record
	Confidence Confidence
	Reason     string
	Score      int
}

var (
	reCodeFence     = regexp.MustCompile("(?s)```(?:json)?\n?(.*?)```")
	reTrailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// parseCandidates locates every outermost balanced brace-delimited substring
// of the raw response (after stripping markdown code fences) and parses each
// one independently. Responses that echo the instruction template before the
// real answer yield several candidates; selection happens afterwards.
func parseCandidates(raw string, tmpl PromptTemplate) []ParseAttempt {
	cleaned := stripFences(raw)
	blocks := jsonBlocks(cleaned)
	attempts := make([]ParseAttempt, 0, len(blocks))
	for _, b := range blocks {
		attempts = append(attempts, parseCandidate(b, tmpl))
	}
	return attempts
}

// selectCandidate picks the highest-scoring successfully parsed attempt.
// Ties go to the earlier block. Pure function over the attempt list.
func selectCandidate(attempts []ParseAttempt) (ParseAttempt, bool) {
	best := -1
	for i, a := range attempts {
		if a.Status != ParsedOK {
			continue
		}
		if best < 0 || a.Score > attempts[best].Score {
			best = i
		}
	}
	if best < 0 {
		return ParseAttempt{}, false
	}
	return attempts[best], true
}

func stripFences(s string) string {
	if m := reCodeFence.FindAllStringSubmatch(s, -1); len(m) > 0 {
		parts := make([]string, 0, len(m))
		for _, g := range m {
			parts = append(parts, g[1])
		}
		return strings.Join(parts, "\n")
	}
	return s
}

// jsonBlocks returns the outermost balanced {...} substrings, tracking
// string literals so braces inside values do not break the depth count.
func jsonBlocks(s string) []string {
	var blocks []string
	depth := 0
	start := -1
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					blocks = append(blocks, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return blocks
}

func parseCandidate(block string, tmpl PromptTemplate) ParseAttempt {
	m, ok := decodeLenient(block)
	if !ok {
		return ParseAttempt{Status: MalformedSyntax, Reason: "invalid json"}
	}

	// Wrong shape: nested name/address objects instead of flat fields, or a
	// non-scalar value where a scalar is expected.
	for _, k := range []string{"name", "address"} {
		if _, isObj := m[k].(map[string]any); isObj {
			return ParseAttempt{Status: RejectedShape, Reason: "nested " + k + " object"}
		}
	}
	reg := schema.Default()
	for _, name := range reg.FieldNames() {
		switch m[name].(type) {
		case map[string]any, []any:
			return ParseAttempt{Status: RejectedShape, Reason: "non-scalar value for " + name}
		}
	}

	fields := make(Record, reg.Len())
	score := 0
	placeholders := 0
	for _, name := range reg.FieldNames() {
		v, present := m[name]
		if !present || v == nil {
			fields[name] = nil
			continue
		}
		s, isStr := v.(string)
		if !isStr {
			// Keep non-string scalars; the validator reports the mismatch.
			fields[name] = v
			score++
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			fields[name] = nil
			continue
		}
		if isPlaceholderValue(s) {
			placeholders++
			fields[name] = nil
			continue
		}
		fields[name] = s
		score++
	}

	// Template echo: the instructional example reproduced verbatim, or a
	// candidate consisting of marker values.
	first, _ := fields[schema.FieldFirstName].(string)
	last, _ := fields[schema.FieldLastName].(string)
	if first == tmpl.ExampleFirstName && last == tmpl.ExampleLastName {
		return ParseAttempt{Status: RejectedPlaceholder, Reason: "instructional example echoed"}
	}
	if placeholders > 0 && score == 0 {
		return ParseAttempt{Status: RejectedPlaceholder, Reason: "template markers only"}
	}

	return ParseAttempt{
		Status:     ParsedOK,
		Fields:     fields,
		Confidence: parseConfidence(m),
		Score:      score,
	}
}

// decodeLenient unmarshals a candidate block, retrying once with newline
// flattening and trailing-comma removal the way small local models tend to
// need.
func decodeLenient(block string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(block), &m); err == nil {
		return m, true
	}
	fixed := strings.NewReplacer("\n", " ", "\r", " ").Replace(block)
	fixed = reTrailingComma.ReplaceAllString(fixed, "$1")
	if err := json.Unmarshal([]byte(fixed), &m); err == nil {
		return m, true
	}
	return nil, false
}

// isPlaceholderValue detects literal template text echoed instead of data:
// "string or null", "MM/DD/YYYY", "2-letter code", bare "null", "M or F".
func isPlaceholderValue(s string) bool {
	l := strings.ToLower(s)
	switch {
	case l == "null", l == "string":
		return true
	case strings.Contains(l, "string"):
		return true
	case strings.Contains(l, " or "):
		return true
	case strings.EqualFold(s, "MM/DD/YYYY"), strings.EqualFold(s, "DD/MM/YYYY"):
		return true
	case strings.Contains(l, "letter code"):
		return true
	}
	return false
}

func parseConfidence(m map[string]any) Confidence {
	conf := make(Confidence)
	sub, ok := m["confidence"].(map[string]any)
	if !ok {
		return conf
	}
	for k, v := range sub {
		if f, ok := v.(float64); ok && f >= 0 && f <= 1 {
			conf[k] = f
		}
	}
	return conf
}

// ensureShape backfills any field the model omitted with null and any
// missing confidence entry with the neutral default, guaranteeing the fixed
// key set on the way out.
func ensureShape(a ParseAttempt, reg *schema.Registry) Extraction {
	fields := make(Record, reg.Len())
	conf := make(Confidence, reg.Len())
	for _, name := range reg.FieldNames() {
		if v, ok := a.Fields[name]; ok {
			fields[name] = v
		} else {
			fields[name] = nil
		}
		if c, ok := a.Confidence[name]; ok {
			conf[name] = c
		} else {
			conf[name] = NeutralConfidence
		}
	}
	return Extraction{Fields: fields, Confidence: conf, Method: "llm"}
}
