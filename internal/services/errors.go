package services

import (
	"errors"

	"github.com/foxxcyber/docfields/internal/models"
)

// Error kinds raised by the extraction pipeline. A field that cannot be found is
// never an error; it is reported as a nil value in the result.
var (
	ErrUnreadableDocument = errors.New("unreadable document")
	ErrBackendUnavailable = errors.New("generative backend unavailable")
	ErrSchemaProcessing   = errors.New("schema processing failed")
	ErrInvalidStrategy    = errors.New("invalid extraction strategy")
	ErrInvalidSchema      = models.ErrInvalidSchema
)

// ExtractionError carries an error kind together with its underlying cause
type ExtractionError struct {
	Kind    error
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	msg := e.Kind.Error()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *ExtractionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newError(kind error, message string, cause error) error {
	return &ExtractionError{Kind: kind, Message: message, Cause: cause}
}

// backendFailure wraps a transport failure so it matches both
// ErrSchemaProcessing and ErrBackendUnavailable.
func backendFailure(cause error) error {
	return newError(ErrSchemaProcessing, "model request failed",
		newError(ErrBackendUnavailable, "", cause))
}
