package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Stream errors
const (
	// ErrCodeFormat indicates a line lacks the key/value separator.
	ErrCodeFormat ErrorCode = "FORMAT_ERROR"
	// ErrCodeDecode indicates a payload the selected backend cannot deserialize.
	ErrCodeDecode ErrorCode = "DECODE_ERROR"
	// ErrCodeEncode indicates a value the selected backend cannot serialize.
	ErrCodeEncode ErrorCode = "ENCODE_ERROR"
	// ErrCodeValue indicates a callback emitted a pair with neither key nor value.
	ErrCodeValue ErrorCode = "VALUE_ERROR"
)

// Execution errors
const (
	// ErrCodeProcessFailure indicates a worker exited non-zero or terminated unexpectedly.
	ErrCodeProcessFailure ErrorCode = "PROCESS_FAILURE"
	// ErrCodeResourceLimit marks a non-fatal truncation of oversized local input.
	ErrCodeResourceLimit ErrorCode = "RESOURCE_LIMIT"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// fatalCodes lists the codes that abort a run. RESOURCE_LIMIT is the only
// warning-level code.
var fatalCodes = map[ErrorCode]bool{
	ErrCodeFormat:         true,
	ErrCodeDecode:         true,
	ErrCodeEncode:         true,
	ErrCodeValue:          true,
	ErrCodeProcessFailure: true,
	ErrCodeInvalidInput:   true,
	ErrCodeMissingField:   true,
	ErrCodeInternal:       true,
	ErrCodeResourceLimit:  false,
}

// IsFatalCode returns true if the error code aborts the run it occurred in.
func IsFatalCode(code ErrorCode) bool {
	return fatalCodes[code]
}
