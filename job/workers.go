package job

import (
	"context"
	"io"

	"github.com/kbukum/mrstream/process"
	"github.com/kbukum/mrstream/worker"
)

// ProcessWorkers returns one subprocess worker per phase. Each runs base with
// the phase flag (--mapper, --combiner or --reducer) appended to its args,
// so base.Binary is normally the job's own executable.
func (j *Job) ProcessWorkers(base process.Command) []worker.Worker {
	phases := j.Phases()
	workers := make([]worker.Worker, 0, len(phases))
	for _, p := range phases {
		workers = append(workers, worker.NewProcess(string(p), base.With("--"+string(p))))
	}
	return workers
}

// InProcessWorkers returns one worker per phase that runs the stage in a
// goroutine of the current process.
func (j *Job) InProcessWorkers() []worker.Worker {
	phases := j.Phases()
	workers := make([]worker.Worker, 0, len(phases))
	for _, p := range phases {
		workers = append(workers, worker.NewFunc(string(p), func(ctx context.Context, r io.Reader, w io.Writer) error {
			return j.RunStage(ctx, p, r, w)
		}))
	}
	return workers
}
