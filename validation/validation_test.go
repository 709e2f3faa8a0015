package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/mrstream/errors"
)

func TestValidatorRequired(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"set", "wordcount", false},
		{"empty", "", true},
		{"blank", "   ", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := New().Required("name", tc.value).HasErrors(); got != tc.wantErr {
				t.Errorf("Required(%q) errors = %v, wantErr %v", tc.value, got, tc.wantErr)
			}
		})
	}
}

func TestValidatorNonNegative(t *testing.T) {
	tests := []struct {
		name    string
		value   int64
		wantErr bool
	}{
		{"zero", 0, false},
		{"positive", 500000, false},
		{"negative", -1, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := New().NonNegative("max_input_lines", tc.value)
			if v.HasErrors() != tc.wantErr {
				t.Errorf("NonNegative(%d) errors = %v, wantErr %v", tc.value, v.Errors(), tc.wantErr)
			}
		})
	}
}

func TestValidatorOneOf(t *testing.T) {
	runners := []string{"local", "inline", "streaming"}
	if New().OneOf("runner", "inline", runners).HasErrors() {
		t.Error("expected inline to be accepted")
	}
	if New().OneOf("runner", "", runners).HasErrors() {
		t.Error("empty values are left to Required")
	}
	v := New().OneOf("runner", "yarn", runners)
	if !v.HasErrors() || v.Errors()[0].Message != "must be one of: local, inline, streaming" {
		t.Errorf("unexpected errors %v", v.Errors())
	}
}

func TestValidatorKeyValue(t *testing.T) {
	v := New().KeyValue("cmdenv", []string{"TZ=UTC", "EXPR=a=b", "NOVALUE=", "=x", "plain"})
	got := v.Errors()
	if len(got) != 3 {
		t.Fatalf("expected 3 errors, got %v", got)
	}
	for i, field := range []string{"cmdenv[2]", "cmdenv[3]", "cmdenv[4]"} {
		if got[i].Field != field {
			t.Errorf("error %d field = %q, want %q", i, got[i].Field, field)
		}
	}
}

func TestIsKeyValue(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"mapred.reduce.tasks=4", true},
		{"k=v=w", true},
		{"k=", false},
		{"=v", false},
		{"kv", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := IsKeyValue(tc.in); got != tc.want {
			t.Errorf("IsKeyValue(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestValidatorCustom(t *testing.T) {
	v := New().Custom(true, "input", "is required").Custom(false, "output", "is required")
	if len(v.Errors()) != 1 || v.Errors()[0].Field != "output" {
		t.Errorf("unexpected errors %v", v.Errors())
	}
}

func TestValidatorValidate(t *testing.T) {
	if err := New().Required("name", "job").Validate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	err := New().
		Required("streaming.output", "").
		Custom(false, "streaming.input", "is required").
		Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Code != errors.ErrCodeInvalidInput {
		t.Errorf("code = %s", err.Code)
	}
	if err.Message != "streaming.output: is required; streaming.input: is required" {
		t.Errorf("message = %q", err.Message)
	}
	if fields, ok := err.Details["fields"].([]FieldError); !ok || len(fields) != 2 {
		t.Errorf("details = %v", err.Details)
	}
}

func TestValidatorChaining(t *testing.T) {
	v := New()
	if v.Required("name", "job").NonNegative("lines", 1).OneOf("runner", "local", []string{"local"}) != v {
		t.Error("expected chaining to return the same validator")
	}
	if v.HasErrors() {
		t.Errorf("unexpected errors %v", v.Errors())
	}
}

func TestStructValidate(t *testing.T) {
	type Streaming struct {
		Cmdenv      []string `mapstructure:"cmdenv" validate:"dive,keyvalue"`
		MergeOutput int      `mapstructure:"merge_output" validate:"gte=0"`
	}

	tests := []struct {
		name   string
		in     Streaming
		errMsg string
	}{
		{"valid", Streaming{Cmdenv: []string{"TZ=UTC"}, MergeOutput: 2}, ""},
		{"empty", Streaming{}, ""},
		{"bad pair", Streaming{Cmdenv: []string{"TZ=UTC", "TZ"}}, "cmdenv[1]: must be key=value"},
		{"negative", Streaming{MergeOutput: -1}, "merge_output: must be at least 0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.in)
			if tc.errMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Fatalf("expected %q, got %v", tc.errMsg, err)
			}
		})
	}
}

func TestStructValidateNestedPath(t *testing.T) {
	type Limits struct {
		MaxInputLines int `mapstructure:"max_input_lines" validate:"gte=0"`
	}
	type Root struct {
		Runner string `mapstructure:"runner" validate:"oneof=local inline streaming"`
		Local  Limits `mapstructure:"local"`
	}

	err := Validate(Root{Runner: "yarn", Local: Limits{MaxInputLines: -1}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"runner: must be one of: local inline streaming", "local.max_input_lines: must be at least 0"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestStructValidateUntaggedField(t *testing.T) {
	type Hook struct {
		MaxRetries int `validate:"gte=0"`
	}
	err := Validate(Hook{MaxRetries: -2})
	if err == nil || !strings.Contains(err.Error(), "max_retries: must be at least 0") {
		t.Fatalf("expected snake_case field name, got %v", err)
	}
}
