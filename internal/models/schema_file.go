package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseFieldSchema decodes a YAML or JSON document mapping field keys to specs
// and validates it.
func ParseFieldSchema(data []byte) (FieldSchema, error) {
	schema := FieldSchema{}
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return schema.WithDefaults(), nil
}

// ReadFieldSchema loads a schema file from disk
func ReadFieldSchema(path string) (FieldSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return ParseFieldSchema(data)
}
