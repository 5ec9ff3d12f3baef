package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/foxxcyber/docfields/internal/models"
)

// fieldsJSONSchema describes the object a model should answer with
func fieldsJSONSchema(schema models.FieldSchema) map[string]any {
	properties := make(map[string]any, len(schema))
	for key, field := range schema {
		jsonType := "string"
		if field.IsInteger() {
			jsonType = "integer"
		}
		properties[key] = map[string]any{"type": []string{jsonType, "null"}}
	}

	return map[string]any{
		"$schema":    "https://json-schema.org/draft/2020-12/schema",
		"type":       "object",
		"properties": properties,
		"required":   schema.Keys(),
	}
}

// validateAgainstFields checks a recovered object against the field types
func validateAgainstFields(schema models.FieldSchema, obj map[string]any) error {
	b, err := json.Marshal(fieldsJSONSchema(schema))
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("fields.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile("fields.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	if err := compiled.Validate(map[string]any(obj)); err != nil {
		return fmt.Errorf("model output does not match fields: %w", err)
	}
	return nil
}

// normalizeResult keeps exactly the schema keys and coerces each value to its
// declared type. Values that cannot be coerced become nil.
func normalizeResult(schema models.FieldSchema, obj map[string]any) models.ExtractionResult {
	result := models.NewEmptyResult(schema)
	for key, field := range schema {
		v, ok := obj[key]
		if !ok || v == nil {
			continue
		}
		if field.IsInteger() {
			result[key] = coerceInteger(v)
		} else {
			result[key] = coerceString(v)
		}
	}
	return result
}

func coerceInteger(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return integralFloat(f)
		}
	case float64:
		return integralFloat(val)
	case int64:
		return val
	case int:
		return int64(val)
	case string:
		digits := stripWhitespace(val)
		if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
			return n
		}
	}
	return nil
}

func integralFloat(f float64) any {
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return nil
	}
	return int64(f)
}

func coerceString(v any) any {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	}
	return nil
}

// describeMismatch shortens a validation error for logging
func describeMismatch(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, "\n"); i > 0 {
		return msg[:i]
	}
	return msg
}
