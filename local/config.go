package local

import "github.com/kbukum/mrstream/validation"

// Input caps of a local run. The local runner is meant for tests and small
// samples.
const (
	DefaultMaxInputBytes int64 = 50_000_000
	DefaultMaxInputLines       = 500_000
)

// Config configures the local runner.
type Config struct {
	// Input lists glob patterns. Empty or "-" reads standard input.
	Input []string `yaml:"input" mapstructure:"input"`
	// Output is a file path. Empty or "-" writes standard output.
	Output string `yaml:"output" mapstructure:"output"`
	// MaxInputBytes caps the bytes read from Input.
	MaxInputBytes int64 `yaml:"max_input_bytes" mapstructure:"max_input_bytes" validate:"gte=0"`
	// MaxInputLines caps the lines read from Input.
	MaxInputLines int `yaml:"max_input_lines" mapstructure:"max_input_lines" validate:"gte=0"`
}

// ApplyDefaults sets unset caps to their defaults.
func (c *Config) ApplyDefaults() {
	if c.MaxInputBytes == 0 {
		c.MaxInputBytes = DefaultMaxInputBytes
	}
	if c.MaxInputLines == 0 {
		c.MaxInputLines = DefaultMaxInputLines
	}
}

// Validate checks the caps.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
