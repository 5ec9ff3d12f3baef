package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// FieldType is the declared type of a schema slot
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
)

// ErrInvalidSchema is returned when a field schema cannot be interpreted
var ErrInvalidSchema = errors.New("invalid field schema")

// FieldSpec declares how one schema slot should be interpreted
type FieldSpec struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Type        FieldType `json:"type" yaml:"type"`
}

// IsInteger reports whether the field asks for an integer value
func (f FieldSpec) IsInteger() bool {
	return f.Type == FieldTypeInteger
}

// FieldSchema maps a caller-chosen field key to its spec
type FieldSchema map[string]FieldSpec

// Keys returns the field keys in sorted order
func (s FieldSchema) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks every field for a usable name and a known type.
// An empty type is accepted and means string; see WithDefaults.
// The schema is not modified.
func (s FieldSchema) Validate() error {
	for _, key := range s.Keys() {
		spec := s[key]
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: empty field key", ErrInvalidSchema)
		}
		if strings.TrimSpace(spec.Name) == "" {
			return fmt.Errorf("%w: field %q has no name", ErrInvalidSchema, key)
		}
		switch spec.Type {
		case FieldTypeString, FieldTypeInteger, "":
		default:
			return fmt.Errorf("%w: field %q has unsupported type %q", ErrInvalidSchema, key, spec.Type)
		}
	}
	return nil
}

// WithDefaults returns a copy of the schema with empty types set to string
func (s FieldSchema) WithDefaults() FieldSchema {
	out := make(FieldSchema, len(s))
	for key, spec := range s {
		if spec.Type == "" {
			spec.Type = FieldTypeString
		}
		out[key] = spec
	}
	return out
}

// ExtractionResult maps a field key to its extracted value.
// Values are string, int64 or nil when the field was not found.
type ExtractionResult map[string]any

// NewEmptyResult returns a result holding nil for every schema key
func NewEmptyResult(schema FieldSchema) ExtractionResult {
	result := make(ExtractionResult, len(schema))
	for key := range schema {
		result[key] = nil
	}
	return result
}

// ExtractionEnvelope is what a caller receives for one extraction
type ExtractionEnvelope struct {
	FileID   string           `json:"file_id"`
	Strategy string           `json:"ocr"`
	Result   ExtractionResult `json:"result"`
	RawText  string           `json:"raw_ocr"`
}

// ExtractRequest is the body of an extraction call
type ExtractRequest struct {
	FileID   string      `json:"file_id"`
	Strategy string      `json:"ocr"`
	Fields   FieldSchema `json:"fields"`
}
