package job

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kbukum/mrstream/config"
	"github.com/kbukum/mrstream/errors"
	"github.com/kbukum/mrstream/local"
	"github.com/kbukum/mrstream/logger"
	"github.com/kbukum/mrstream/observability"
	"github.com/kbukum/mrstream/process"
	"github.com/kbukum/mrstream/streaming"
	"github.com/kbukum/mrstream/util"
	"github.com/kbukum/mrstream/version"
	"github.com/kbukum/mrstream/worker"
)

// EnvPrefix prefixes the environment variables that override configuration.
const EnvPrefix = "MRSTREAM"

type options struct {
	mapper   bool
	combiner bool
	reducer  bool
	runner   string
	inputs   []string
	output   string
	config   string
	jobconf  []string
}

// Command returns the command line of a job binary. With --mapper,
// --combiner or --reducer the binary runs that stage as a worker over
// stdin and stdout; otherwise it runs the whole job with the selected runner.
func Command(j *Job) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           j.Name,
		Short:         fmt.Sprintf("Run the %s map/reduce job", j.Name),
		Version:       version.Get().String(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, j)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.mapper, "mapper", false, "run the mapper over stdin (worker mode)")
	f.BoolVar(&opts.combiner, "combiner", false, "run the combiner over stdin (worker mode)")
	f.BoolVar(&opts.reducer, "reducer", false, "run the reducer over stdin (worker mode)")
	cmd.MarkFlagsMutuallyExclusive("mapper", "combiner", "reducer")

	f.StringVarP(&opts.runner, "runner", "r", "", "where to run the job: local, inline or streaming")
	f.StringArrayVar(&opts.inputs, "input", nil, "input path or glob (repeatable)")
	f.StringVar(&opts.output, "output", "", "output path")
	f.StringVarP(&opts.config, "config", "c", "", "config file (default is ./<job>.yml or ./config.yml)")
	f.StringArrayVarP(&opts.jobconf, "jobconf", "D", nil, "hadoop property key=value (repeatable)")
	return cmd
}

// Execute runs the job's command line and exits non-zero on failure.
func Execute(j *Job) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := Command(j).ExecuteContext(ctx)
	stop()
	if err != nil {
		appErr := errors.Wrap(err)
		fields := logger.MergeWithError(logger.Fields("code", string(appErr.Code)), err)
		for k, v := range appErr.Details {
			fields[k] = v
		}
		logger.Error(j.Name+" failed", fields)
		os.Exit(1)
	}
}

func (o *options) phase() (Phase, bool) {
	switch {
	case o.mapper:
		return Mapper, true
	case o.combiner:
		return Combiner, true
	case o.reducer:
		return Reducer, true
	}
	return "", false
}

func (o *options) run(cmd *cobra.Command, j *Job) error {
	if err := j.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()

	if phase, ok := o.phase(); ok {
		if j.Reporter == nil && onHadoop() {
			j.Reporter = NewReporter(cmd.ErrOrStderr())
		}
		// Workers have no config file; LOG_LEVEL and friends apply instead.
		if j.Logger == nil {
			j.Logger = logger.NewFromEnv(j.Name).WithComponent("job")
		}
		return j.RunStage(ctx, phase, cmd.InOrStdin(), cmd.OutOrStdout())
	}

	loadOpts := []config.LoaderOption{config.WithEnvPrefix(EnvPrefix)}
	if o.config != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(o.config))
	}
	cfg, err := config.Load(j.Name, loadOpts...)
	if err != nil {
		return err
	}
	o.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Init(cfg.Logging)
	shutdown, err := observability.Init(ctx, cfg.Observability)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("telemetry shutdown failed", logger.ErrorFields("shutdown", err))
		}
	}()

	if cfg.Runner == config.RunnerStreaming {
		return o.runStreaming(ctx, cmd, cfg, j)
	}
	return o.runLocal(ctx, cmd, cfg, j)
}

// apply lets command-line flags override the loaded configuration.
func (o *options) apply(cfg *config.Config) {
	cfg.Runner = util.Coalesce(o.runner, cfg.Runner)
	if len(o.inputs) > 0 {
		cfg.Local.Input = o.inputs
		cfg.Streaming.Input = o.inputs
	}
	cfg.Local.Output = util.Coalesce(o.output, cfg.Local.Output)
	cfg.Streaming.Output = util.Coalesce(o.output, cfg.Streaming.Output)
	cfg.Streaming.Jobconf = append(cfg.Streaming.Jobconf, o.jobconf...)
}

func (o *options) runLocal(ctx context.Context, cmd *cobra.Command, cfg *config.Config, j *Job) error {
	var workers []worker.Worker
	if cfg.Runner == config.RunnerInline {
		workers = j.InProcessWorkers()
	} else {
		exe, err := os.Executable()
		if err != nil {
			return errors.Internal(fmt.Errorf("locating job binary: %w", err))
		}
		workers = j.ProcessWorkers(process.Command{Binary: exe, Stderr: cmd.ErrOrStderr()})
	}

	r := local.New(cfg.Local,
		local.WithStdin(cmd.InOrStdin()),
		local.WithStdout(cmd.OutOrStdout()),
	)
	_, err := r.Run(ctx, workers)
	return err
}

func (o *options) runStreaming(ctx context.Context, cmd *cobra.Command, cfg *config.Config, j *Job) error {
	exe, err := os.Executable()
	if err != nil {
		return errors.Internal(fmt.Errorf("locating job binary: %w", err))
	}
	phases := make([]string, 0, 3)
	for _, p := range j.Phases() {
		phases = append(phases, string(p))
	}
	r := streaming.New(cfg.Streaming, streaming.WithStderr(cmd.ErrOrStderr()))
	return r.Run(ctx, streaming.Job{Name: j.Name, Binary: exe, Phases: phases})
}

// onHadoop reports whether the process is a Hadoop streaming task.
func onHadoop() bool {
	return os.Getenv("mapreduce_task_id") != "" || os.Getenv("mapred_task_id") != ""
}
