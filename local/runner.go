package local

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"

	"github.com/kbukum/mrstream/errors"
	"github.com/kbukum/mrstream/logger"
	"github.com/kbukum/mrstream/observability"
	"github.com/kbukum/mrstream/pipeline"
	"github.com/kbukum/mrstream/util"
	"github.com/kbukum/mrstream/worker"
)

// stderrTail bounds the worker diagnostics copied into a failure.
const stderrTail = 4096

// Runner chains workers on the local host. Each worker's output is sorted by
// key and fed to the next one, emulating the shuffle of a cluster run.
type Runner struct {
	cfg     Config
	fs      afero.Fs
	stdin   io.Reader
	stdout  io.Writer
	log     *logger.Logger
	metrics *observability.Metrics
}

// Option configures a Runner.
type Option func(*Runner)

// WithFs sets the file system inputs and output are resolved on.
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) { r.fs = fs }
}

// WithStdin sets the reader used when no input is configured.
func WithStdin(rd io.Reader) Option {
	return func(r *Runner) { r.stdin = rd }
}

// WithStdout sets the writer used when no output is configured.
func WithStdout(w io.Writer) Option {
	return func(r *Runner) { r.stdout = w }
}

// WithLogger sets the runner's logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithMetrics sets the instruments the runner records to.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// New creates a Runner. Unset caps take their defaults.
func New(cfg Config, opts ...Option) *Runner {
	cfg.ApplyDefaults()
	r := &Runner{
		cfg:    cfg,
		fs:     afero.NewOsFs(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get("local")
	}
	if r.metrics == nil {
		r.metrics = observability.DefaultMetrics()
	}
	return r
}

// Run executes the workers in order. Stages run one after another; the first
// failing stage ends the run and nothing is written to the output.
func (r *Runner) Run(ctx context.Context, workers []worker.Worker) (report *Report, err error) {
	report = &Report{RunID: uuid.NewString()}
	ctx = logger.ContextWithRunID(ctx, report.RunID)
	log := r.log.WithContext(ctx)

	ctx, span := observability.StartSpan(ctx, observability.SpanRun)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrRunID, report.RunID)
	defer func() {
		if err != nil {
			observability.SetSpanError(ctx, err)
			if appErr, ok := errors.AsAppError(err); ok {
				r.metrics.RecordError(ctx, string(appErr.Code), "local")
			}
		}
	}()

	if len(workers) == 0 {
		return report, errors.InvalidInput("workers", "no stage to run")
	}
	if err := r.cfg.Validate(); err != nil {
		return report, err
	}
	inputs, fromStdin, err := r.resolveInputs(log)
	if err != nil {
		return report, err
	}
	if err := r.checkOutput(); err != nil {
		return report, err
	}

	in := r.source(ctx, log, inputs, fromStdin, report)
	var out [][]byte
	for i, w := range workers {
		if i > 0 {
			sortByKey(ctx, out)
			in = pipeline.FromSlice(out)
		}
		var stage StageResult
		out, stage, err = r.runStage(ctx, log, w, in)
		report.Stages = append(report.Stages, stage)
		if err != nil {
			return report, err
		}
	}

	observability.SetSpanAttribute(ctx, observability.AttrLinesIn, report.InputLines)
	observability.SetSpanAttribute(ctx, observability.AttrLinesOut, len(out))
	observability.SetSpanAttribute(ctx, observability.AttrTruncated, report.Truncated)
	if err := r.writeOutput(out); err != nil {
		return report, err
	}
	log.Info("local run completed", logger.Fields(
		"stages", len(report.Stages),
		logger.FieldLinesIn, report.InputLines,
		logger.FieldLinesOut, len(out),
		"truncated", report.Truncated,
	))
	return report, nil
}

// runStage feeds in to one worker and collects everything it writes. Input is
// written from a separate goroutine while this one drains the output, so
// neither side can block on a full pipe.
func (r *Runner) runStage(ctx context.Context, log *logger.Logger, w worker.Worker, in *pipeline.Pipeline[[]byte]) ([][]byte, StageResult, error) {
	result := StageResult{Name: w.Name(), ExitCode: -1}
	ctx, span := observability.StartSpan(ctx, observability.SpanStage)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrWorker, w.Name())
	log = log.WithFields(logger.Fields(logger.FieldWorker, w.Name()))
	log.Debug(fmt.Sprintf("running %s ...", w.Name()))

	start := time.Now()
	session, err := w.Start(ctx)
	if err != nil {
		return nil, result, errors.ProcessFailure(w.Name(), -1, err)
	}

	var (
		wg      conc.WaitGroup
		linesIn int
		feedErr error
	)
	wg.Go(func() {
		linesIn, feedErr = feed(ctx, in, session.Stdin())
	})

	lines, readErr := pipeline.Collect(ctx, pipeline.Lines(session.Stdout()))
	if readErr != nil {
		// Keep draining so the worker and the writer can finish.
		_, _ = io.Copy(io.Discard, session.Stdout())
	}
	wg.Wait()
	code, waitErr := session.Wait()

	result.ExitCode = code
	result.LinesIn = linesIn
	result.LinesOut = len(lines)
	result.Duration = time.Since(start)
	observability.SetSpanAttribute(ctx, observability.AttrExitCode, code)
	observability.SetSpanAttribute(ctx, observability.AttrLinesIn, linesIn)
	observability.SetSpanAttribute(ctx, observability.AttrLinesOut, len(lines))

	if code != 0 || waitErr != nil {
		failure := errors.ProcessFailure(w.Name(), code, waitErr)
		if d, ok := session.(worker.Diagnostics); ok {
			if tail := lastBytes(d.Stderr(), stderrTail); len(tail) > 0 {
				failure.WithDetail("stderr", string(tail))
			}
		}
		log.Debug("stage failed", logger.MergeWithError(logger.Fields(logger.FieldExitCode, code), failure))
		observability.SetSpanError(ctx, failure)
		return nil, result, failure
	}
	if feedErr != nil {
		return nil, result, fmt.Errorf("feeding %s: %w", w.Name(), feedErr)
	}
	if readErr != nil {
		return nil, result, fmt.Errorf("reading %s output: %w", w.Name(), readErr)
	}

	log.Debug(fmt.Sprintf("%s completed", w.Name()), logger.Fields(
		logger.FieldLinesIn, linesIn,
		logger.FieldLinesOut, len(lines),
		logger.FieldDuration, result.Duration.Milliseconds(),
	))
	return lines, result, nil
}

// feed writes every line to stdin, terminating unterminated lines, and closes
// stdin. A worker that stops reading early is not an error.
func feed(ctx context.Context, in *pipeline.Pipeline[[]byte], stdin io.WriteCloser) (n int, err error) {
	defer func() {
		if cerr := stdin.Close(); err == nil && cerr != nil && !worker.IsBrokenPipe(cerr) {
			err = cerr
		}
	}()

	bw := bufio.NewWriterSize(stdin, 64*1024)
	err = pipeline.ForEach(ctx, in, func(_ context.Context, line []byte) error {
		if _, err := bw.Write(line); err != nil {
			return err
		}
		if len(line) == 0 || line[len(line)-1] != '\n' {
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
		}
		n++
		return nil
	})
	if err == nil {
		err = bw.Flush()
	}
	if worker.IsBrokenPipe(err) {
		return n, nil
	}
	return n, err
}

// sortByKey orders lines by the bytes before the first tab, keeping the
// relative order of equal keys.
func sortByKey(ctx context.Context, lines [][]byte) {
	_, span := observability.StartSpan(ctx, observability.SpanSort)
	defer span.End()
	slices.SortStableFunc(lines, func(a, b []byte) int {
		return bytes.Compare(lineKey(a), lineKey(b))
	})
}

func lineKey(line []byte) []byte {
	line = pipeline.TrimEOL(line)
	if i := bytes.IndexByte(line, '\t'); i >= 0 {
		return line[:i]
	}
	return line
}

func lastBytes(b []byte, n int) []byte {
	b = bytes.TrimSpace(b)
	if len(b) > n {
		return b[len(b)-n:]
	}
	return b
}

// --- Input and output ---

func isStd(path string) bool { return path == "" || path == "-" }

// resolveInputs expands the input globs. Directories are skipped with a
// warning; duplicates are dropped keeping the first occurrence.
func (r *Runner) resolveInputs(log *logger.Logger) (paths []string, fromStdin bool, err error) {
	patterns := r.cfg.Input
	if len(patterns) == 0 || (len(patterns) == 1 && patterns[0] == "-") {
		return nil, true, nil
	}

	var matched []string
	for _, pattern := range patterns {
		if pattern == "-" {
			return nil, false, errors.InvalidInput("input", `"-" cannot be combined with other inputs`)
		}
		matches, err := afero.Glob(r.fs, pattern)
		if err != nil {
			return nil, false, errors.InvalidInput("input", fmt.Sprintf("bad pattern %q", pattern)).WithCause(err)
		}
		if len(matches) == 0 {
			return nil, false, errors.InvalidInput("input", fmt.Sprintf("input path %q does not exist", pattern))
		}
		matched = append(matched, matches...)
	}

	for _, path := range util.Unique(matched) {
		info, err := r.fs.Stat(path)
		if err != nil {
			return nil, false, errors.InvalidInput("input", fmt.Sprintf("cannot stat %q", path)).WithCause(err)
		}
		if info.IsDir() {
			log.Warn("input is a directory, skipped", logger.Fields(logger.FieldPath, path))
			continue
		}
		paths = append(paths, path)
	}
	return paths, false, nil
}

// checkOutput refuses to overwrite a directory or a file with content.
func (r *Runner) checkOutput() error {
	if isStd(r.cfg.Output) {
		return nil
	}
	info, err := r.fs.Stat(r.cfg.Output)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.InvalidInput("output", fmt.Sprintf("cannot stat %q", r.cfg.Output)).WithCause(err)
	}
	if info.IsDir() {
		return errors.InvalidInput("output", fmt.Sprintf("%q is an existing directory", r.cfg.Output))
	}
	if info.Size() != 0 {
		return errors.InvalidInput("output", fmt.Sprintf("%q is an existing file and not empty", r.cfg.Output))
	}
	return nil
}

// source reads the inputs in order and stops at the first line that would
// exceed a cap.
func (r *Runner) source(ctx context.Context, log *logger.Logger, paths []string, fromStdin bool, report *Report) *pipeline.Pipeline[[]byte] {
	var parts []*pipeline.Pipeline[[]byte]
	if fromStdin {
		parts = append(parts, pipeline.Lines(r.stdin))
	}
	for _, path := range paths {
		parts = append(parts, pipeline.OpenLines(func(context.Context) (io.ReadCloser, error) {
			return r.fs.Open(path)
		}))
	}

	maxLines, maxBytes := r.cfg.MaxInputLines, r.cfg.MaxInputBytes
	return pipeline.TakeWhile(pipeline.Concat(parts...), func(line []byte) bool {
		switch {
		case report.InputLines >= maxLines:
			r.truncate(ctx, log, report, errors.ResourceLimit("lines", int64(maxLines)))
			return false
		case report.InputBytes+int64(len(line)) > maxBytes:
			r.truncate(ctx, log, report, errors.ResourceLimit("bytes", maxBytes))
			return false
		}
		report.InputLines++
		report.InputBytes += int64(len(line))
		return true
	})
}

func (r *Runner) truncate(ctx context.Context, log *logger.Logger, report *Report, warning *errors.AppError) {
	report.Truncated = true
	report.Warnings = append(report.Warnings, warning)
	log.Warn(warning.Message, warning.Details)
	r.metrics.RecordTruncation(ctx, fmt.Sprint(warning.Details["limit"]))
}

// writeOutput writes the final lines verbatim.
func (r *Runner) writeOutput(lines [][]byte) (err error) {
	w := r.stdout
	if !isStd(r.cfg.Output) {
		f, cerr := r.fs.Create(r.cfg.Output)
		if cerr != nil {
			return fmt.Errorf("creating output %s: %w", r.cfg.Output, cerr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	bw := bufio.NewWriterSize(w, 64*1024)
	for _, line := range lines {
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}
