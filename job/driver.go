package job

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kbukum/mrstream/errors"
	"github.com/kbukum/mrstream/logger"
	"github.com/kbukum/mrstream/observability"
	"github.com/kbukum/mrstream/pipeline"
	"github.com/kbukum/mrstream/protocol"
	"github.com/kbukum/mrstream/util"
)

// Counter group used for the records a stage reads and writes.
const CounterGroup = "mrstream"

// RunStage runs one phase of the job: it decodes r line by line, calls the
// stage once per run of equal keys and writes every emitted pair to w.
//
// Mapper input is never grouped; each record is its own group. The terminal
// phase normalizes pairs with Normalize before encoding them.
func (j *Job) RunStage(ctx context.Context, phase Phase, r io.Reader, w io.Writer) (err error) {
	stage := j.Stage(phase)
	if stage == nil || stage.Process == nil {
		return errors.InvalidInput("phase", fmt.Sprintf("job %s has no %s", j.Name, phase))
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanStage)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrJob, j.Name)
	observability.SetSpanAttribute(ctx, observability.AttrPhase, string(phase))
	if j.Reporter != nil {
		ctx = WithReporter(ctx, j.Reporter)
	}

	log := j.log().WithContext(ctx).WithFields(logger.Fields(logger.FieldPhase, string(phase)))
	read, write := j.protocols(phase)
	out := &stageWriter{w: bufio.NewWriterSize(w, 64*1024), proto: write, terminal: j.IsTerminal(phase)}
	var in int64
	start := time.Now()

	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			observability.SetSpanError(ctx, err)
			if appErr, ok := errors.AsAppError(err); ok {
				j.metrics().RecordError(ctx, string(appErr.Code), "job")
			}
		}
		observability.SetSpanAttribute(ctx, observability.AttrLinesIn, in)
		observability.SetSpanAttribute(ctx, observability.AttrLinesOut, out.count)
		j.metrics().RecordStage(ctx, string(phase), status, in, out.count, time.Since(start))
		_ = j.Reporter.IncrCounter(CounterGroup, string(phase)+".records.in", in)
		_ = j.Reporter.IncrCounter(CounterGroup, string(phase)+".records.out", out.count)
	}()

	if stage.Init != nil {
		log.Info(fmt.Sprintf("running %s_init ...", phase))
		if err := stage.Init(ctx, out.emit); err != nil {
			return err
		}
		log.Info(fmt.Sprintf("%s_init completed", phase))
	}

	lines := pipeline.Tap(pipeline.Lines(r), func(context.Context, []byte) error {
		in++
		return nil
	})
	records := pipeline.Map(lines, func(_ context.Context, line []byte) (protocol.Record, error) {
		return read.Read(pipeline.TrimEOL(line))
	})
	groups := pipeline.GroupBy(records, recordKey, recordValue, keyEqual(phase))

	log.Info(fmt.Sprintf("running %s ...", phase))
	err = pipeline.ForEach(ctx, groups, func(ctx context.Context, g pipeline.Group[any, any]) error {
		if err := stage.Process(ctx, g.Key, g.Values, out.emit); err != nil {
			return err
		}
		// A decode error inside the group fails the stage even when the
		// callback did not look at it.
		return g.Values.Err()
	})
	if err != nil {
		return err
	}
	log.Info(fmt.Sprintf("%s completed", phase), logger.DurationFields(string(phase), time.Since(start)))

	if stage.Final != nil {
		log.Info(fmt.Sprintf("running %s_final ...", phase))
		if err := stage.Final(ctx, out.emit); err != nil {
			return err
		}
		log.Info(fmt.Sprintf("%s_final completed", phase))
	}

	return out.w.Flush()
}

func recordKey(r protocol.Record) any   { return r.Key }
func recordValue(r protocol.Record) any { return r.Value }

// keyEqual returns the grouping comparison for a phase. A nil result makes
// GroupBy compare with reflect.DeepEqual.
func keyEqual(phase Phase) func(a, b any) bool {
	if phase == Mapper {
		return func(any, any) bool { return false }
	}
	return nil
}

// Normalize turns a terminal pair into the single value the output protocol
// encodes: the value when the key is nil, the key when the value is nil, and
// otherwise the flattened key followed by the flattened value.
func Normalize(key, value any) (any, error) {
	switch {
	case key == nil && value == nil:
		return nil, errors.ValueError("must supply at least one of key/value, got neither")
	case key == nil:
		return value, nil
	case value == nil:
		return key, nil
	default:
		return util.Flatten(key, value), nil
	}
}

type stageWriter struct {
	w        *bufio.Writer
	proto    protocol.Protocol
	terminal bool
	count    int64
}

func (s *stageWriter) emit(key, value any) error {
	if s.terminal {
		v, err := Normalize(key, value)
		if err != nil {
			return err
		}
		key, value = nil, v
	}
	line, err := s.proto.Write(key, value)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(line); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	s.count++
	return nil
}
