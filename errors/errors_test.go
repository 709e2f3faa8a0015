package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeFormat, "bad line")
	if err.Code != ErrCodeFormat {
		t.Errorf("expected code %s, got %s", ErrCodeFormat, err.Code)
	}
	if err.Message != "bad line" {
		t.Errorf("expected message 'bad line', got %q", err.Message)
	}
	if !err.Fatal {
		t.Error("FORMAT_ERROR should be fatal")
	}
}

func TestAppError_New_Warning(t *testing.T) {
	err := New(ErrCodeResourceLimit, "truncated")
	if err.Fatal {
		t.Error("RESOURCE_LIMIT should not be fatal")
	}
}

func TestAppError_FormatError_Preview(t *testing.T) {
	line := []byte(strings.Repeat("x", 200))
	err := FormatError(line)
	if err.Code != ErrCodeFormat {
		t.Errorf("expected FORMAT_ERROR, got %s", err.Code)
	}
	if got := err.Details["line"].(string); len(got) != previewLen {
		t.Errorf("expected preview of %d bytes, got %d", previewLen, len(got))
	}
	if err.Details["length"] != 200 {
		t.Errorf("expected length=200, got %v", err.Details["length"])
	}
}

func TestAppError_DecodeError_Success(t *testing.T) {
	cause := fmt.Errorf("unexpected EOF")
	err := DecodeError("msgpack", cause)
	if err.Code != ErrCodeDecode {
		t.Errorf("expected DECODE_ERROR, got %s", err.Code)
	}
	if err.Details["backend"] != "msgpack" {
		t.Errorf("expected backend=msgpack, got %v", err.Details["backend"])
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
}

func TestAppError_ProcessFailure_Success(t *testing.T) {
	err := ProcessFailure("reducer", 3, nil)
	if err.Code != ErrCodeProcessFailure {
		t.Errorf("expected PROCESS_FAILURE, got %s", err.Code)
	}
	if err.Details["exit_code"] != 3 {
		t.Errorf("expected exit_code=3, got %v", err.Details["exit_code"])
	}
	if !strings.Contains(err.Error(), "reducer") {
		t.Errorf("expected worker name in message, got %q", err.Error())
	}
}

func TestAppError_ResourceLimit_Success(t *testing.T) {
	err := ResourceLimit("lines", 2)
	if err.Fatal {
		t.Error("ResourceLimit should not be fatal")
	}
	if err.Details["max"] != int64(2) {
		t.Errorf("expected max=2, got %v", err.Details["max"])
	}
}

func TestAppError_InvalidInput_Success(t *testing.T) {
	err := InvalidInput("input", "no such file")
	if err.Code != ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", err.Code)
	}
	if err.Details["field"] != "input" {
		t.Errorf("expected field=input, got %v", err.Details["field"])
	}
}

func TestAppError_WithCause_Chain(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := ValueError("neither").WithCause(cause)
	if err.Cause != cause {
		t.Error("expected cause to be set via WithCause")
	}
	if !strings.Contains(err.Error(), "root cause") {
		t.Errorf("Error() should contain cause, got %q", err.Error())
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := MissingField("output").WithDetails(map[string]any{
		"extra": "info",
	})
	if err.Details["extra"] != "info" {
		t.Errorf("expected extra=info in details")
	}
	if err.Details["field"] != "output" {
		t.Errorf("expected field=output to be preserved")
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := ValueError("x")
	err.WithDetail("k", "v")
	if err.Details["k"] != "v" {
		t.Errorf("expected k=v, got %v", err.Details["k"])
	}
}

func TestAppError_Error_Format(t *testing.T) {
	err := New(ErrCodeValue, "boom")
	if err.Error() != "VALUE_ERROR: boom" {
		t.Errorf("unexpected format: %q", err.Error())
	}
}

func TestErrorCode_IsFatalCode_Table(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want bool
	}{
		{ErrCodeFormat, true},
		{ErrCodeDecode, true},
		{ErrCodeValue, true},
		{ErrCodeProcessFailure, true},
		{ErrCodeResourceLimit, false},
		{ErrorCode("UNKNOWN"), false},
	}
	for _, tc := range tests {
		t.Run(string(tc.code), func(t *testing.T) {
			if got := IsFatalCode(tc.code); got != tc.want {
				t.Errorf("IsFatalCode(%s) = %v, want %v", tc.code, got, tc.want)
			}
		})
	}
}

func TestAppError_AsAppError_Success(t *testing.T) {
	wrapped := fmt.Errorf("stage mapper: %w", DecodeError("json", nil))
	got, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to succeed for wrapped AppError")
	}
	if got.Code != ErrCodeDecode {
		t.Errorf("expected DECODE_ERROR, got %s", got.Code)
	}
	if !IsAppError(wrapped) {
		t.Error("expected IsAppError to be true")
	}

	_, ok = AsAppError(fmt.Errorf("not an app error"))
	if ok {
		t.Error("expected AsAppError to return false for non-AppError")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", ProcessFailure("mapper", 1, nil))
	if !HasCode(err, ErrCodeProcessFailure) {
		t.Error("expected PROCESS_FAILURE in chain")
	}
	if HasCode(err, ErrCodeFormat) {
		t.Error("did not expect FORMAT_ERROR")
	}
	if HasCode(nil, ErrCodeFormat) {
		t.Error("nil error has no code")
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	if Wrap(nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrap_AppErrorPassthrough(t *testing.T) {
	orig := ValueError("x")
	if got := Wrap(orig); got != orig {
		t.Error("Wrap should return the original AppError unchanged")
	}
}

func TestWrap_PlainError(t *testing.T) {
	plain := fmt.Errorf("something broke")
	got := Wrap(plain)
	if got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", got.Code)
	}
	if got.Cause != plain {
		t.Error("expected cause to be the original error")
	}
}

func TestAppError_ImplementsErrorInterface(t *testing.T) {
	var err error = FormatError([]byte("abc"))
	if err.Error() == "" {
		t.Error("Error() should not be empty")
	}

	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		t.Error("stderrors.As should work with AppError")
	}
}
