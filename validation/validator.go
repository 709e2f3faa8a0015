package validation

import (
	"fmt"
	"strings"

	"github.com/kbukum/mrstream/errors"
)

// Validator collects field errors of hand-written checks, for rules that
// depend on more than one field or on values known only at run time.
type Validator struct {
	errors []FieldError
}

// FieldError is one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a Validator.
func New() *Validator {
	return &Validator{}
}

// AddError records a failed check.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns the failed checks in the order they ran.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Validate returns an INVALID_INPUT error listing every failed check, or nil.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	return newAppError(v.errors)
}

func newAppError(fields []FieldError) *errors.AppError {
	messages := make([]string, len(fields))
	for i, e := range fields {
		messages[i] = e.Field + ": " + e.Message
	}
	appErr := errors.Validation(strings.Join(messages, "; "))
	appErr.Details = map[string]any{"fields": fields}
	return appErr
}

// Required checks that a string is not blank.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// NonNegative checks that a count or size is not below zero.
func (v *Validator) NonNegative(field string, value int64) *Validator {
	if value < 0 {
		v.AddError(field, fmt.Sprintf("must be at least 0, got %d", value))
	}
	return v
}

// OneOf checks that a non-empty value is one of allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v
	}
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// KeyValue checks that every entry has the form key=value with both sides
// non-empty, as Hadoop -D and -cmdenv options need.
func (v *Validator) KeyValue(field string, entries []string) *Validator {
	for i, kv := range entries {
		if !IsKeyValue(kv) {
			v.AddError(fmt.Sprintf("%s[%d]", field, i), fmt.Sprintf("%q is not key=value", kv))
		}
	}
	return v
}

// Custom records message when condition is false.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}

// IsKeyValue reports whether s is key=value with a non-empty key and value.
// The value may itself contain '='.
func IsKeyValue(s string) bool {
	k, val, ok := strings.Cut(s, "=")
	return ok && k != "" && val != ""
}
