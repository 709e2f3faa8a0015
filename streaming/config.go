package streaming

import (
	"strings"

	"github.com/kbukum/mrstream/validation"
)

// Config configures Hadoop streaming runs.
type Config struct {
	// Hadoop is the hadoop client executable.
	Hadoop string `yaml:"hadoop" mapstructure:"hadoop"`
	// Jar selects "hadoop jar <Jar>" instead of the "hadoop streaming" wrapper.
	Jar string `yaml:"jar" mapstructure:"jar"`

	Input  []string `yaml:"input" mapstructure:"input"`
	Output string   `yaml:"output" mapstructure:"output"`

	// Jobconf entries are key=value pairs passed with -D.
	Jobconf []string `yaml:"jobconf" mapstructure:"jobconf"`
	// Cmdenv entries are key=value pairs passed with -cmdenv.
	Cmdenv        []string `yaml:"cmdenv" mapstructure:"cmdenv" validate:"dive,keyvalue"`
	CacheArchives []string `yaml:"cache_archives" mapstructure:"cache_archives"`
	Files         []string `yaml:"files" mapstructure:"files"`

	InputFormat  string `yaml:"inputformat" mapstructure:"inputformat"`
	OutputFormat string `yaml:"outputformat" mapstructure:"outputformat"`
	Partitioner  string `yaml:"partitioner" mapstructure:"partitioner"`

	// Mapper, Combiner and Reducer override the task commands, which
	// default to the shipped job binary with its phase flag.
	Mapper   string `yaml:"mapper" mapstructure:"mapper"`
	Combiner string `yaml:"combiner" mapstructure:"combiner"`
	Reducer  string `yaml:"reducer" mapstructure:"reducer"`

	// Queues maps a queue name to the jobconf entries every job submitted
	// to it needs, such as its job tracker.
	Queues map[string][]string `yaml:"queues" mapstructure:"queues"`

	// MergeOutput, when below mapred.reduce.tasks, merges the job output into
	// that many files with an identity job.
	MergeOutput int `yaml:"merge_output" mapstructure:"merge_output" validate:"gte=0"`

	// Others are appended to the streaming command line as is.
	Others []string `yaml:"others" mapstructure:"others"`
}

// ApplyDefaults sets the hadoop executable.
func (c *Config) ApplyDefaults() {
	if c.Hadoop == "" {
		c.Hadoop = "hadoop"
	}
}

// Validate checks the static settings. Input and output are checked when a
// job is submitted because the command line may supply them.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// checkRun checks the settings a submission needs.
func (c *Config) checkRun() error {
	v := validation.New().
		Custom(len(c.Input) > 0, "streaming.input", "is required").
		Required("streaming.output", c.Output)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// splitPair splits "key=value". Both sides must be non-empty.
func splitPair(kv string) (key, value string, ok bool) {
	if !validation.IsKeyValue(kv) {
		return "", "", false
	}
	key, value, _ = strings.Cut(kv, "=")
	return key, value, true
}
