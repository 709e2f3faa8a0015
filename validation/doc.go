// Package validation checks configuration values.
//
// Struct tags are checked with go-playground/validator and failures are
// reported by their config key:
//
//	type Limits struct {
//	    MaxInputLines int `mapstructure:"max_input_lines" validate:"gte=0"`
//	}
//	err := validation.Validate(limits) // "max_input_lines: must be at least 0"
//
// Checks that do not fit a tag use the collecting Validator:
//
//	v := validation.New()
//	v.Required("name", cfg.Name).OneOf("environment", cfg.Environment, envs)
//	err := v.Validate()
package validation
