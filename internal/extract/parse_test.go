package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KCD1111/DMVREAL/internal/schema"
)

func TestJSONBlocks(t *testing.T) {
	t.Parallel()

	t.Run("two blocks", func(t *testing.T) {
		t.Parallel()
		blocks := jsonBlocks(`noise {"a": 1} middle {"b": 2} tail`)
		require.Len(t, blocks, 2)
		assert.Equal(t, `{"a": 1}`, blocks[0])
		assert.Equal(t, `{"b": 2}`, blocks[1])
	})

	t.Run("nested object is one block", func(t *testing.T) {
		t.Parallel()
		blocks := jsonBlocks(`{"a": {"b": 2}}`)
		require.Len(t, blocks, 1)
	})

	t.Run("brace inside string", func(t *testing.T) {
		t.Parallel()
		blocks := jsonBlocks(`{"a": "close } brace"}`)
		require.Len(t, blocks, 1)
		assert.Equal(t, `{"a": "close } brace"}`, blocks[0])
	})

	t.Run("no blocks", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, jsonBlocks("plain text only"))
	})
}

func TestParseCandidate(t *testing.T) {
	t.Parallel()
	tmpl := DefaultPromptTemplate()

	t.Run("real answer", func(t *testing.T) {
		t.Parallel()
		a := parseCandidate(`{
			"first_name": "Maria",
			"last_name": "Garcia",
			"license_number": "D12345678",
			"date_of_birth": "03/12/1988",
			"confidence": {"first_name": 0.95, "last_name": 0.9}
		}`, tmpl)
		require.Equal(t, ParsedOK, a.Status)
		assert.Equal(t, "Maria", a.Fields[schema.FieldFirstName])
		assert.Equal(t, 4, a.Score)
		assert.InDelta(t, 0.95, a.Confidence[schema.FieldFirstName], 1e-9)
	})

	t.Run("trailing comma tolerated", func(t *testing.T) {
		t.Parallel()
		a := parseCandidate(`{"first_name": "Ana", "last_name": "Ruiz",}`, tmpl)
		require.Equal(t, ParsedOK, a.Status)
		assert.Equal(t, "Ana", a.Fields[schema.FieldFirstName])
	})

	t.Run("example echo rejected", func(t *testing.T) {
		t.Parallel()
		a := parseCandidate(`{"first_name": "John", "last_name": "Smith"}`, tmpl)
		assert.Equal(t, RejectedPlaceholder, a.Status)
	})

	t.Run("template markers rejected", func(t *testing.T) {
		t.Parallel()
		a := parseCandidate(`{"license_number": "string or null", "date_of_birth": "MM/DD/YYYY or null"}`, tmpl)
		assert.Equal(t, RejectedPlaceholder, a.Status)
	})

	t.Run("nested name object rejected", func(t *testing.T) {
		t.Parallel()
		a := parseCandidate(`{"name": {"first": "Ana", "last": "Ruiz"}}`, tmpl)
		assert.Equal(t, RejectedShape, a.Status)
	})

	t.Run("malformed syntax", func(t *testing.T) {
		t.Parallel()
		a := parseCandidate(`{"first_name": `, tmpl)
		assert.Equal(t, MalformedSyntax, a.Status)
	})

	t.Run("markers beside real data dropped per field", func(t *testing.T) {
		t.Parallel()
		a := parseCandidate(`{"first_name": "Maria", "license_number": "string or null"}`, tmpl)
		require.Equal(t, ParsedOK, a.Status)
		assert.Equal(t, "Maria", a.Fields[schema.FieldFirstName])
		assert.Nil(t, a.Fields[schema.FieldLicenseNumber])
	})
}

func TestSelectCandidate(t *testing.T) {
	t.Parallel()

	t.Run("highest score wins", func(t *testing.T) {
		t.Parallel()
		attempts := []ParseAttempt{
			{Status: RejectedPlaceholder},
			{Status: ParsedOK, Score: 2, Fields: Record{"first_name": "A"}},
			{Status: ParsedOK, Score: 5, Fields: Record{"first_name": "B"}},
		}
		chosen, ok := selectCandidate(attempts)
		require.True(t, ok)
		assert.Equal(t, "B", chosen.Fields["first_name"])
	})

	t.Run("tie keeps first", func(t *testing.T) {
		t.Parallel()
		attempts := []ParseAttempt{
			{Status: ParsedOK, Score: 3, Fields: Record{"first_name": "A"}},
			{Status: ParsedOK, Score: 3, Fields: Record{"first_name": "B"}},
		}
		chosen, ok := selectCandidate(attempts)
		require.True(t, ok)
		assert.Equal(t, "A", chosen.Fields["first_name"])
	})

	t.Run("nothing usable", func(t *testing.T) {
		t.Parallel()
		_, ok := selectCandidate([]ParseAttempt{{Status: MalformedSyntax}})
		assert.False(t, ok)
	})
}

func TestEnsureShape(t *testing.T) {
	t.Parallel()
	reg := schema.Default()
	a := ParseAttempt{
		Status:     ParsedOK,
		Fields:     Record{schema.FieldFirstName: "Maria"},
		Confidence: Confidence{schema.FieldFirstName: 0.9},
	}
	ex := ensureShape(a, reg)
	assert.Len(t, ex.Fields, reg.Len())
	assert.Len(t, ex.Confidence, reg.Len())
	assert.Equal(t, "Maria", ex.Fields[schema.FieldFirstName])
	assert.Nil(t, ex.Fields[schema.FieldZipCode])
	assert.InDelta(t, NeutralConfidence, ex.Confidence[schema.FieldZipCode], 1e-9)
	assert.Equal(t, "llm", ex.Method)
}

func TestStripFences(t *testing.T) {
	t.Parallel()
	got := stripFences("Here you go:\n```json\n{\"a\": 1}\n```")
	assert.Equal(t, "{\"a\": 1}\n", got)
}
