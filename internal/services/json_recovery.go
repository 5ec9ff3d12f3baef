package services

import (
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
)

// recoveryStage records which step of the chain produced the object
type recoveryStage string

const (
	stageStrict    recoveryStage = "strict"
	stageBraceSpan recoveryStage = "brace_span"
	stageEmpty     recoveryStage = "empty"
)

// braceSpan is greedy: first '{' through last '}'
var braceSpan = regexp.MustCompile(`(?s)\{.*\}`)

// recoverJSON turns a model response into a JSON object.
// Strict parse, then the widest brace-delimited span, then an empty object.
func recoverJSON(response string) (map[string]any, recoveryStage) {
	if obj, err := parseStrict(response); err == nil {
		return obj, stageStrict
	}
	if obj, err := parseBraceSpan(response); err == nil {
		return obj, stageBraceSpan
	}
	return map[string]any{}, stageEmpty
}

// parseStrict decodes the whole response as one JSON object.
// Numbers stay json.Number so long integers keep every digit.
func parseStrict(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("not a json object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after json object")
	}
	return obj, nil
}

func parseBraceSpan(s string) (map[string]any, error) {
	span := braceSpan.FindString(s)
	if span == "" {
		return nil, errors.New("no brace delimited span")
	}
	return parseStrict(span)
}
