package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
)

var (
	ErrInvalidTransition = errors.New("transition not allowed from this stage")
	ErrGroupNotFound     = errors.New("group not found")
	ErrSessionNotFound   = errors.New("attendance session not found")
	ErrNotAuthorized     = errors.New("operator is not allowed to perform this action")
)

// FieldError names one invalid input field and the rule it broke.
type FieldError struct {
	Field string
	Rule  string
}

// ValidationError reports missing or malformed input. It is always returned
// before anything is written.
type ValidationError struct {
	Fields []FieldError
	Err    error
}

func newValidationError(err error, fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields, Err: err}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s is %s", f.Field, describeRule(f.Rule)))
	}
	msg := "validation failed"
	if len(parts) > 0 {
		msg += ": " + strings.Join(parts, ", ")
	}
	if e.Err != nil && len(parts) == 0 {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// HasField reports whether field failed validation.
func (e *ValidationError) HasField(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func describeRule(rule string) string {
	switch rule {
	case "required":
		return "required"
	case "numeric", "decimal":
		return "not a number"
	case "gte", "nonnegative":
		return "negative"
	case "oneof":
		return "not an allowed value"
	case "datetime":
		return "not a YYYY-MM-DD date"
	default:
		return "invalid (" + rule + ")"
	}
}

// TransportError wraps a failed record store call.
type TransportError struct {
	Op         string
	Collection record.Collection
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("record store %s on %s: %v", e.Op, e.Collection, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PartialApplicationError is returned when a multi-step operation wrote some
// but not all of its steps. The completed steps are not rolled back.
type PartialApplicationError struct {
	TransitionID string
	Completed    []string
	Failed       []string
	Err          error
}

func (e *PartialApplicationError) Error() string {
	return fmt.Sprintf("transition %s partially applied (done: %s; failed: %s): %v",
		e.TransitionID, strings.Join(e.Completed, ", "), strings.Join(e.Failed, ", "), e.Err)
}

func (e *PartialApplicationError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsPartial reports whether err is a PartialApplicationError.
func IsPartial(err error) bool {
	var p *PartialApplicationError
	return errors.As(err, &p)
}

// IsNotFound reports whether err stems from a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, record.ErrNotFound) || errors.Is(err, ErrGroupNotFound) || errors.Is(err, ErrSessionNotFound)
}
