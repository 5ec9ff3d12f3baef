package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldSchemaValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  FieldSchema
		wantErr bool
	}{
		{
			name:   "empty schema",
			schema: FieldSchema{},
		},
		{
			name: "string and integer",
			schema: FieldSchema{
				"full_name": {Name: "Name", Type: FieldTypeString},
				"tax_no":    {Name: "Vergi No", Type: FieldTypeInteger},
			},
		},
		{
			name:    "missing name",
			schema:  FieldSchema{"x": {Type: FieldTypeString}},
			wantErr: true,
		},
		{
			name:    "unknown type",
			schema:  FieldSchema{"x": {Name: "Total", Type: "float"}},
			wantErr: true,
		},
		{
			name:    "blank key",
			schema:  FieldSchema{" ": {Name: "Total", Type: FieldTypeString}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSchema)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFieldSchemaValidateLeavesSchemaUntouched(t *testing.T) {
	schema := FieldSchema{"company": {Name: "Company"}}

	require.NoError(t, schema.Validate())
	assert.Equal(t, FieldType(""), schema["company"].Type)
}

func TestFieldSchemaWithDefaults(t *testing.T) {
	schema := FieldSchema{
		"company": {Name: "Company"},
		"total":   {Name: "Total", Type: FieldTypeInteger},
	}

	defaulted := schema.WithDefaults()

	assert.Equal(t, FieldTypeString, defaulted["company"].Type)
	assert.Equal(t, FieldTypeInteger, defaulted["total"].Type)
	assert.Equal(t, FieldType(""), schema["company"].Type, "original must not change")
	assert.Empty(t, FieldSchema(nil).WithDefaults())
}

func TestNewEmptyResult(t *testing.T) {
	schema := FieldSchema{
		"a": {Name: "A", Type: FieldTypeString},
		"b": {Name: "B", Type: FieldTypeInteger},
	}

	result := NewEmptyResult(schema)

	assert.Len(t, result, 2)
	assert.Contains(t, result, "a")
	assert.Contains(t, result, "b")
	assert.Nil(t, result["a"])
	assert.Equal(t, []string{"a", "b"}, schema.Keys())
}

func TestDocumentFileName(t *testing.T) {
	doc := Document{ID: "4b1f", Extension: "pdf"}
	assert.Equal(t, "4b1f.pdf", doc.FileName())
}
