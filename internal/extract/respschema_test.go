package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KCD1111/DMVREAL/internal/schema"
)

func TestResponseSchema(t *testing.T) {
	t.Parallel()
	reg := schema.Default()
	compiled, err := CompileResponseSchema(reg)
	require.NoError(t, err)

	t.Run("valid attempt passes", func(t *testing.T) {
		t.Parallel()
		a := ParseAttempt{
			Fields:     Record{schema.FieldFirstName: "Maria", schema.FieldCity: nil},
			Confidence: Confidence{schema.FieldFirstName: 0.9},
		}
		assert.NoError(t, validateAttempt(compiled, a))
	})

	t.Run("non-string scalar fails", func(t *testing.T) {
		t.Parallel()
		a := ParseAttempt{Fields: Record{schema.FieldZipCode: 78701.0}}
		assert.Error(t, validateAttempt(compiled, a))
	})

	t.Run("confidence out of range fails", func(t *testing.T) {
		t.Parallel()
		a := ParseAttempt{
			Fields:     Record{schema.FieldFirstName: "Maria"},
			Confidence: Confidence{schema.FieldFirstName: 1.5},
		}
		assert.Error(t, validateAttempt(compiled, a))
	})
}
