package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/foxxcyber/docfields/internal/models"
)

const extractionSystemPrompt = "You extract structured data from documents and answer with JSON only."

// buildExtractionPrompt embeds the recognized text verbatim and the schema as
// indented JSON, then states the answer format.
func buildExtractionPrompt(text string, schema models.FieldSchema) (string, error) {
	var fields bytes.Buffer
	enc := json.NewEncoder(&fields)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(schema); err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}

	var b strings.Builder
	b.WriteString("Extract the requested fields from the document text below.\n\n")
	b.WriteString("Document text:\n\"\"\"\n")
	b.WriteString(text)
	b.WriteString("\n\"\"\"\n\n")
	b.WriteString("Fields to extract, keyed by field key. Each entry gives the field name, a description and the expected type:\n")
	b.Write(fields.Bytes())
	b.WriteString("\nAnswer rules:\n")
	b.WriteString("- Return a single JSON object whose keys are exactly the field keys listed above.\n")
	b.WriteString("- For type \"integer\" return a JSON number, never a quoted string. Keep every digit and do not round or truncate long numbers.\n")
	b.WriteString("- For type \"string\" return a JSON string.\n")
	b.WriteString("- Use JSON null for any field you cannot find in the text.\n")
	b.WriteString("- Output only the JSON object, with no explanation, markdown or other text around it.\n")
	return b.String(), nil
}
