// Package apperr defines the application error taxonomy.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates a missing record or data file.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied indicates a filesystem access failure.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrLockTimeout indicates the advisory lock was not acquired in time.
	ErrLockTimeout = errors.New("lock timeout")
	// ErrCorrupt indicates malformed JSON or a structural validation failure.
	ErrCorrupt = errors.New("corrupt document")
	// ErrWriteFailed indicates a temp-write or rename failure.
	ErrWriteFailed = errors.New("write failed")
)

// FieldError is a single field-tagged validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ValidationError carries one or more field-tagged failures.
// Multiple fields may fail together; callers get all of them, not just the first.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a failure for the given field.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message, Type: "validation"})
}

// HasErrors reports whether any failure was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
