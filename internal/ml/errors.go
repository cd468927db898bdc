package ml

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"loan-approval/internal/common"
)

// ModelLoadError is returned when a model artifact is missing, unreadable or
// not a valid serialized model. It is fatal at startup.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("model loading failed for %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// SchemaMismatchError reports record fields that the model's feature schema
// requires but that are absent, or present with a value of the wrong type.
type SchemaMismatchError struct {
	Missing []string
	Invalid []string
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(e.Invalid, ", "))
	}
	return "input does not match model schema: " + strings.Join(parts, "; ")
}

// Fields returns every offending field name.
func (e *SchemaMismatchError) Fields() []string {
	out := make([]string, 0, len(e.Missing)+len(e.Invalid))
	out = append(out, e.Missing...)
	return append(out, e.Invalid...)
}

// MissingValueError reports fields present in the record but holding a null
// value.
type MissingValueError struct {
	Fields []string
}

func (e *MissingValueError) Error() string {
	return "input contains missing values: " + strings.Join(e.Fields, ", ")
}

// ErrorKind classifies err for metrics and API responses.
func ErrorKind(err error) string {
	var schemaErr *SchemaMismatchError
	var missingErr *MissingValueError
	switch {
	case errors.As(err, &schemaErr):
		return common.ErrKindSchemaMismatch
	case errors.As(err, &missingErr):
		return common.ErrKindMissingValue
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return common.ErrKindCanceled
	default:
		return common.ErrKindInternal
	}
}
