package job

import (
	"context"

	"github.com/kbukum/mrstream/errors"
	"github.com/kbukum/mrstream/logger"
	"github.com/kbukum/mrstream/observability"
	"github.com/kbukum/mrstream/pipeline"
	"github.com/kbukum/mrstream/protocol"
)

// Phase names one of the three stage kinds.
type Phase string

const (
	Mapper   Phase = "mapper"
	Combiner Phase = "combiner"
	Reducer  Phase = "reducer"
)

// AllPhases lists the phases in pipeline order.
var AllPhases = []Phase{Mapper, Combiner, Reducer}

// Emitter writes one output pair of a stage.
type Emitter func(key, value any) error

// ProcessFunc handles one key group. values must not be used after the
// function returns.
type ProcessFunc func(ctx context.Context, key any, values *pipeline.Values[any], emit Emitter) error

// HookFunc runs once before or after a stage's groups.
type HookFunc func(ctx context.Context, emit Emitter) error

// Stage holds the callbacks of one phase. Process is required.
type Stage struct {
	Init    HookFunc
	Process ProcessFunc
	Final   HookFunc
}

// PerRecord adapts a handler called once per input record to a ProcessFunc.
func PerRecord(fn func(ctx context.Context, key, value any, emit Emitter) error) ProcessFunc {
	return func(ctx context.Context, key any, values *pipeline.Values[any], emit Emitter) error {
		for value := range values.All(ctx) {
			if err := fn(ctx, key, value, emit); err != nil {
				return err
			}
		}
		return values.Err()
	}
}

// Job is a map/combine/reduce job. At least one stage must be set; the last
// one present writes the final output.
type Job struct {
	Name     string
	Mapper   *Stage
	Combiner *Stage
	Reducer  *Stage

	// Protocol factories. Each stage run builds fresh protocols so key
	// caches never span two streams. Nil selects the defaults: TextValue
	// input, Msgpack internal and TextValue output.
	InputProtocol    protocol.Factory
	InternalProtocol protocol.Factory
	OutputProtocol   protocol.Factory

	// Reporter receives Hadoop streaming counters. Optional.
	Reporter *Reporter
	// Logger defaults to the "job" component logger.
	Logger *logger.Logger
	// Metrics defaults to the global instruments.
	Metrics *observability.Metrics
}

// Validate checks that the job can run.
func (j *Job) Validate() error {
	if j.Name == "" {
		return errors.MissingField("name")
	}
	phases := j.Phases()
	if len(phases) == 0 {
		return errors.InvalidInput("stages", "job has no mapper, combiner or reducer")
	}
	for _, p := range phases {
		if j.Stage(p).Process == nil {
			return errors.MissingField(string(p) + ".process")
		}
	}
	return nil
}

// Stage returns the stage of a phase, or nil.
func (j *Job) Stage(p Phase) *Stage {
	switch p {
	case Mapper:
		return j.Mapper
	case Combiner:
		return j.Combiner
	case Reducer:
		return j.Reducer
	}
	return nil
}

// Phases returns the phases with a stage, in pipeline order.
func (j *Job) Phases() []Phase {
	var phases []Phase
	for _, p := range AllPhases {
		if j.Stage(p) != nil {
			phases = append(phases, p)
		}
	}
	return phases
}

// IsTerminal reports whether p is the last phase of the job.
func (j *Job) IsTerminal(p Phase) bool {
	phases := j.Phases()
	return len(phases) > 0 && phases[len(phases)-1] == p
}

// protocols returns fresh read and write protocols for a phase.
func (j *Job) protocols(p Phase) (read, write protocol.Protocol) {
	input := orDefault(j.InputProtocol, func() protocol.Protocol { return protocol.NewTextValue() })
	internal := orDefault(j.InternalProtocol, func() protocol.Protocol { return protocol.NewMsgpack() })
	output := orDefault(j.OutputProtocol, func() protocol.Protocol { return protocol.NewTextValue() })

	read = internal()
	if p == Mapper {
		read = input()
	}
	write = internal()
	if j.IsTerminal(p) {
		write = output()
	}
	return read, write
}

func orDefault(f, def protocol.Factory) protocol.Factory {
	if f != nil {
		return f
	}
	return def
}

func (j *Job) log() *logger.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return logger.Get("job")
}

func (j *Job) metrics() *observability.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return observability.DefaultMetrics()
}
