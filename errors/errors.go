package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Fatal indicates the error aborts the run it occurred in.
	Fatal bool `json:"fatal"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic fatal detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Fatal:   IsFatalCode(code),
	}
}

// --- Stream error constructors ---

// previewLen bounds how much of an offending line is copied into details.
const previewLen = 64

// FormatError creates an AppError for a line without the key/value separator.
func FormatError(line []byte) *AppError {
	preview := line
	if len(preview) > previewLen {
		preview = preview[:previewLen]
	}
	return &AppError{
		Code: ErrCodeFormat, Message: "line has no key/value separator",
		Fatal:   true,
		Details: map[string]any{"line": string(preview), "length": len(line)},
	}
}

// DecodeError creates an AppError for a payload the backend cannot deserialize.
func DecodeError(backend string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeDecode, Message: fmt.Sprintf("cannot decode %s payload", backend),
		Fatal: true, Details: map[string]any{"backend": backend}, Cause: cause,
	}
}

// EncodeError creates an AppError for a value the backend cannot serialize.
func EncodeError(backend string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeEncode, Message: fmt.Sprintf("cannot encode %s payload", backend),
		Fatal: true, Details: map[string]any{"backend": backend}, Cause: cause,
	}
}

// ValueError creates an AppError for an emitted pair that cannot be written.
func ValueError(message string) *AppError {
	return &AppError{
		Code: ErrCodeValue, Message: message,
		Fatal: true,
	}
}

// --- Execution error constructors ---

// ProcessFailure creates an AppError for a worker that exited non-zero.
func ProcessFailure(worker string, exitCode int, cause error) *AppError {
	return &AppError{
		Code: ErrCodeProcessFailure, Message: fmt.Sprintf("worker %s failed with exit status %d", worker, exitCode),
		Fatal:   true,
		Details: map[string]any{"worker": worker, "exit_code": exitCode}, Cause: cause,
	}
}

// ResourceLimit creates a warning-level AppError for truncated input.
func ResourceLimit(limit string, max int64) *AppError {
	return &AppError{
		Code: ErrCodeResourceLimit, Message: fmt.Sprintf("input exceeds %s limit of %d, remaining input ignored", limit, max),
		Fatal:   false,
		Details: map[string]any{"limit": limit, "max": max},
	}
}

// --- Validation error constructors ---

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Fatal: true, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		Fatal: true,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		Fatal:   true,
		Details: map[string]any{"field": field},
	}
}

// Internal creates a new AppError for an unexpected internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		Fatal: true, Cause: cause,
	}
}

// --- Inspection helpers ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err wraps an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// Wrap converts any error to an AppError. Nil stays nil and AppErrors found in
// the chain are returned as is; anything else becomes INTERNAL_ERROR.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}
