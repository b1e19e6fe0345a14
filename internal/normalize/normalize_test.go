package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KCD1111/DMVREAL/internal/extract"
	"github.com/KCD1111/DMVREAL/internal/schema"
)

func TestNormalize(t *testing.T) {
	t.Parallel()
	n := New(schema.Default(), nil)

	t.Run("full key set always present", func(t *testing.T) {
		t.Parallel()
		out := n.Normalize(extract.Record{})
		assert.Len(t, out, schema.Default().Len())
		for _, name := range schema.Default().FieldNames() {
			v, ok := out[name]
			assert.True(t, ok, name)
			assert.Nil(t, v, name)
		}
	})

	t.Run("synonym keys fold in", func(t *testing.T) {
		t.Parallel()
		out := n.Normalize(extract.Record{
			"gender": "Male",
			"dob":    "1990-01-15",
			"expiry": "01/15/2030",
			"dln":    "d123-456-789",
		})
		assert.Equal(t, "M", out[schema.FieldSex])
		assert.Equal(t, "01/15/1990", out[schema.FieldDateOfBirth])
		assert.Equal(t, "01/15/2030", out[schema.FieldExpirationDate])
		assert.Equal(t, "D123456789", out[schema.FieldLicenseNumber])
	})

	t.Run("canonical key beats synonym", func(t *testing.T) {
		t.Parallel()
		out := n.Normalize(extract.Record{
			"sex":    "F",
			"gender": "Male",
		})
		assert.Equal(t, "F", out[schema.FieldSex])
	})

	t.Run("names and city title-cased", func(t *testing.T) {
		t.Parallel()
		out := n.Normalize(extract.Record{
			"first_name": "MARIA",
			"last_name":  "GARCIA LOPEZ",
			"city":       "SAN ANTONIO",
		})
		assert.Equal(t, "Maria", out[schema.FieldFirstName])
		assert.Equal(t, "Garcia Lopez", out[schema.FieldLastName])
		assert.Equal(t, "San Antonio", out[schema.FieldCity])
	})

	t.Run("full name splits", func(t *testing.T) {
		t.Parallel()
		out := n.Normalize(extract.Record{"full_name": "MARIA GARCIA"})
		assert.Equal(t, "Maria", out[schema.FieldFirstName])
		assert.Equal(t, "Garcia", out[schema.FieldLastName])
	})

	t.Run("split never overwrites explicit names", func(t *testing.T) {
		t.Parallel()
		out := n.Normalize(extract.Record{
			"first_name": "Ana",
			"full_name":  "MARIA GARCIA",
		})
		assert.Equal(t, "Ana", out[schema.FieldFirstName])
	})

	t.Run("unknown keys dropped", func(t *testing.T) {
		t.Parallel()
		out := n.Normalize(extract.Record{"organ_donor": "yes"})
		_, ok := out["organ_donor"]
		assert.False(t, ok)
	})

	t.Run("state and zip", func(t *testing.T) {
		t.Parallel()
		out := n.Normalize(extract.Record{
			"state":    "tx",
			"zip_code": "787011234",
		})
		assert.Equal(t, "TX", out[schema.FieldState])
		assert.Equal(t, "78701-1234", out[schema.FieldZipCode])
	})

	t.Run("unparseable values pass through", func(t *testing.T) {
		t.Parallel()
		out := n.Normalize(extract.Record{
			"date_of_birth": "sometime in spring",
			"zip_code":      "AB12",
			"sex":           "X",
		})
		assert.Equal(t, "sometime in spring", out[schema.FieldDateOfBirth])
		assert.Equal(t, "AB12", out[schema.FieldZipCode])
		assert.Equal(t, "X", out[schema.FieldSex])
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()
		in := extract.Record{
			"first_name":      "MARIA",
			"license_number":  "D123-456-789",
			"date_of_birth":   "03/12/1988",
			"expiration_date": "2028-03-12",
			"sex":             "female",
			"state":           "tx",
			"zip_code":        "78701",
		}
		once := n.Normalize(in)
		twice := n.Normalize(once)
		assert.Equal(t, once, twice)
	})

	t.Run("whitespace trimmed", func(t *testing.T) {
		t.Parallel()
		out := n.Normalize(extract.Record{"first_name": "  maria  "})
		assert.Equal(t, "Maria", out[schema.FieldFirstName])
	})
}

func TestNormalizeDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", "01/15/1990", "01/15/1990"},
		{"iso", "1990-01-15", "01/15/1990"},
		{"iso slashes", "1990/01/15", "01/15/1990"},
		{"dashes us", "01-15-1990", "01/15/1990"},
		{"two digit year below pivot", "01/15/45", "01/15/2045"},
		{"two digit year above pivot", "01/15/89", "01/15/1989"},
		{"two digit year in go pivot gap", "07/04/55", "07/04/1955"},
		{"garbage passes through", "not a date", "not a date"},
		{"empty passes through", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, NormalizeDate(tc.in))
		})
	}
}

func TestNormalizeKeySpelling(t *testing.T) {
	t.Parallel()
	n := New(schema.Default(), nil)
	out := n.Normalize(extract.Record{
		"First Name":    "maria",
		"Date-Of-Birth": "03/12/1988",
	})
	require.Equal(t, "Maria", out[schema.FieldFirstName])
	require.Equal(t, "03/12/1988", out[schema.FieldDateOfBirth])
}
