package config

import (
	"github.com/kbukum/mrstream/local"
	"github.com/kbukum/mrstream/observability"
	"github.com/kbukum/mrstream/streaming"
	"github.com/kbukum/mrstream/validation"
)

// Runner names.
const (
	RunnerLocal     = "local"
	RunnerInline    = "inline"
	RunnerStreaming = "streaming"
)

// Config is the complete configuration of a job binary.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	// Runner selects where the job runs: local (subprocess workers), inline
	// (in-process workers) or streaming (Hadoop streaming).
	Runner        string               `yaml:"runner" mapstructure:"runner" validate:"oneof=local inline streaming"`
	Local         local.Config         `yaml:"local" mapstructure:"local"`
	Streaming     streaming.Config     `yaml:"streaming" mapstructure:"streaming"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills every section with its defaults.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Runner == "" {
		c.Runner = RunnerLocal
	}
	c.Local.ApplyDefaults()
	c.Streaming.ApplyDefaults()
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = c.Name
	}
	if c.Observability.ServiceVersion == "" {
		c.Observability.ServiceVersion = c.Version
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	c.Observability.ApplyDefaults()
}

// Validate checks every section and stops at the first failing one.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Local.Validate(); err != nil {
		return err
	}
	if err := c.Streaming.Validate(); err != nil {
		return err
	}
	return c.Observability.Validate()
}

// Load reads the configuration of the named job, applies defaults and
// validates it.
func Load(name string, opts ...LoaderOption) (*Config, error) {
	cfg := &Config{}
	if err := LoadConfig(name, cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
