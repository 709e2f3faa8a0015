package streaming

import (
	"bytes"
	"context"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/kbukum/mrstream/errors"
	"github.com/kbukum/mrstream/logger"
	"github.com/kbukum/mrstream/observability"
	"github.com/kbukum/mrstream/process"
)

// TmpSuffix is appended to the output path for the job's temporary output.
const TmpSuffix = "__tmp_mrstream"

var rmNoSuchFile = regexp.MustCompile(`(?m)^rmr?: .*No such file`)

// Runner submits jobs through the hadoop streaming client. A job writes to a
// temporary directory that replaces the output only when the job succeeded,
// so a failed run leaves existing output untouched.
type Runner struct {
	cfg     Config
	log     *logger.Logger
	stderr  io.Writer
	metrics *observability.Metrics
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithStderr sets where the streaming client's progress output is copied.
func WithStderr(w io.Writer) Option {
	return func(r *Runner) { r.stderr = w }
}

// WithMetrics sets the instruments the runner records to.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// New creates a Runner.
func New(cfg Config, opts ...Option) *Runner {
	cfg.ApplyDefaults()
	r := &Runner{cfg: cfg, stderr: os.Stderr}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get("streaming")
	}
	if r.metrics == nil {
		r.metrics = observability.DefaultMetrics()
	}
	return r
}

// Run submits job and promotes its output.
func (r *Runner) Run(ctx context.Context, job Job) (err error) {
	if err := r.cfg.checkRun(); err != nil {
		return err
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanStreaming)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrJob, job.Name)
	log := r.log.WithContext(ctx)
	defer func() {
		if err != nil {
			observability.SetSpanError(ctx, err)
			if appErr, ok := errors.AsAppError(err); ok {
				r.metrics.RecordError(ctx, string(appErr.Code), "streaming")
			}
		}
	}()

	output := strings.TrimRight(r.cfg.Output, "/")
	tmp := output + TmpSuffix
	if err := r.remove(ctx, tmp); err != nil {
		return err
	}

	conf := r.jobconf(job)
	cmd := r.command(conf, job, tmp)
	log.Info("running hadoop streaming ...")
	log.Info("\n" + Pretty(cmd) + "\n")

	res, runErr := process.Run(ctx, cmd)
	logStdout(log, res)
	if runErr != nil {
		code := res.Code()
		observability.SetSpanAttribute(ctx, observability.AttrExitCode, code)
		log.Debug("hadoop streaming failed", logger.Fields(logger.FieldExitCode, code))
		if rmErr := r.remove(ctx, tmp); rmErr != nil {
			log.Warn("failed to remove temporary output", logger.MergeWithError(logger.Fields(logger.FieldPath, tmp), rmErr))
		}
		return errors.ProcessFailure("hadoop streaming", code, runErr).
			WithDetail("hint", "job quit without touching the output; see the tracking URL for task logs")
	}

	if err := r.remove(ctx, output); err != nil {
		return err
	}

	if r.needsMerge(conf) {
		if err := r.merge(ctx, log, conf, tmp, output); err != nil {
			return err
		}
	} else if err := r.fs(ctx, "-mv", tmp, output); err != nil {
		return err
	}

	log.Info("final output: "+output, logger.Fields(logger.FieldPath, output))
	return nil
}

// merge rewrites tmp into output with fewer files. When the merge job fails
// the unmerged output is moved into place instead, and the merge failure is
// still returned.
func (r *Runner) merge(ctx context.Context, log *logger.Logger, conf *jobconf, tmp, output string) error {
	cmd := r.mergeCommand(conf, tmp, output, r.cfg.MergeOutput)
	log.Info("merging output files ...")
	log.Info("\n" + Pretty(cmd) + "\n")

	res, err := process.Run(ctx, cmd)
	logStdout(log, res)
	if err != nil {
		failure := errors.ProcessFailure("merge output", res.Code(), err)
		// The merge job may have left a partial output behind.
		if rmErr := r.remove(ctx, output); rmErr != nil {
			failure.WithDetail("cleanup_error", rmErr.Error())
			return failure
		}
		if mvErr := r.fs(ctx, "-mv", tmp, output); mvErr != nil {
			failure.WithDetail("cleanup_error", mvErr.Error())
		}
		return failure
	}
	return r.remove(ctx, tmp)
}

// remove deletes path, accepting a path that does not exist.
func (r *Runner) remove(ctx context.Context, path string) error {
	res, err := process.Run(ctx, r.client().With("fs", "-rmr", path))
	if err != nil && res != nil && rmNoSuchFile.Match(res.Stderr) {
		return nil
	}
	return r.fsResult("-rmr", res, err)
}

// fs runs "hadoop fs <op> args...".
func (r *Runner) fs(ctx context.Context, op string, args ...string) error {
	res, err := process.Run(ctx, r.client().With("fs", op).With(args...))
	return r.fsResult(op, res, err)
}

func (r *Runner) fsResult(op string, res *process.Result, err error) error {
	if err == nil {
		logStdout(r.log, res)
		return nil
	}
	for _, line := range res.StderrLines() {
		// HDFS client chatter.
		if strings.Contains(line, " INFO ") {
			continue
		}
		r.log.Error("STDERR: " + line)
	}
	return errors.ProcessFailure("hadoop fs "+op, res.Code(), err)
}

func logStdout(log *logger.Logger, res *process.Result) {
	if res == nil || len(bytes.TrimSpace(res.Stdout)) == 0 {
		return
	}
	log.Info("STDOUT: " + string(bytes.TrimSpace(res.Stdout)))
}
