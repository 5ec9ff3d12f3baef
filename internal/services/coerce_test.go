package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxxcyber/docfields/internal/models"
)

var invoiceSchema = models.FieldSchema{
	"tax_no":  {Name: "Vergi No", Description: "11 digit tax number", Type: models.FieldTypeInteger},
	"company": {Name: "Company", Description: "issuer", Type: models.FieldTypeString},
}

func TestValidateAgainstFields(t *testing.T) {
	t.Run("conforming object", func(t *testing.T) {
		obj := map[string]any{"tax_no": json.Number("12345678901"), "company": "ACME"}
		assert.NoError(t, validateAgainstFields(invoiceSchema, obj))
	})

	t.Run("nulls are allowed", func(t *testing.T) {
		obj := map[string]any{"tax_no": nil, "company": nil}
		assert.NoError(t, validateAgainstFields(invoiceSchema, obj))
	})

	t.Run("numeral string for integer", func(t *testing.T) {
		obj := map[string]any{"tax_no": "12345678901", "company": "ACME"}
		assert.Error(t, validateAgainstFields(invoiceSchema, obj))
	})

	t.Run("missing key", func(t *testing.T) {
		obj := map[string]any{"company": "ACME"}
		assert.Error(t, validateAgainstFields(invoiceSchema, obj))
	})
}

func TestNormalizeResult(t *testing.T) {
	tests := []struct {
		name string
		obj  map[string]any
		want models.ExtractionResult
	}{
		{
			name: "conforming values",
			obj:  map[string]any{"tax_no": json.Number("12345678901"), "company": "ACME"},
			want: models.ExtractionResult{"tax_no": int64(12345678901), "company": "ACME"},
		},
		{
			name: "numeral string becomes integer",
			obj:  map[string]any{"tax_no": "123 456 789 01", "company": "ACME"},
			want: models.ExtractionResult{"tax_no": int64(12345678901), "company": "ACME"},
		},
		{
			name: "integral float becomes integer",
			obj:  map[string]any{"tax_no": json.Number("42.0")},
			want: models.ExtractionResult{"tax_no": int64(42), "company": nil},
		},
		{
			name: "fractional number is nil",
			obj:  map[string]any{"tax_no": json.Number("4.5")},
			want: models.ExtractionResult{"tax_no": nil, "company": nil},
		},
		{
			name: "number for string field keeps its digits",
			obj:  map[string]any{"company": json.Number("1071")},
			want: models.ExtractionResult{"tax_no": nil, "company": "1071"},
		},
		{
			name: "objects and lists are nil",
			obj:  map[string]any{"tax_no": []any{json.Number("1")}, "company": map[string]any{"x": "y"}},
			want: models.ExtractionResult{"tax_no": nil, "company": nil},
		},
		{
			name: "extra keys are dropped and missing keys are nil",
			obj:  map[string]any{"total": json.Number("9")},
			want: models.ExtractionResult{"tax_no": nil, "company": nil},
		},
		{
			name: "empty object",
			obj:  map[string]any{},
			want: models.ExtractionResult{"tax_no": nil, "company": nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeResult(invoiceSchema, tt.obj))
		})
	}
}

func TestCoerceIntegerBounds(t *testing.T) {
	assert.Nil(t, coerceInteger(json.Number("1e30")))
	assert.Nil(t, coerceInteger(float64(1<<63)))
	assert.Equal(t, int64(-3), coerceInteger(float64(-3)))
	assert.Nil(t, coerceInteger(true))
	assert.Nil(t, coerceInteger("twelve"))
}

func TestFieldsJSONSchema(t *testing.T) {
	s := fieldsJSONSchema(invoiceSchema)

	require.Equal(t, []string{"company", "tax_no"}, s["required"])
	props := s["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": []string{"integer", "null"}}, props["tax_no"])
	assert.Equal(t, map[string]any{"type": []string{"string", "null"}}, props["company"])
}
