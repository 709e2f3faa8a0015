package local

import (
	"time"

	"github.com/kbukum/mrstream/errors"
)

// Report describes a finished or failed local run.
type Report struct {
	RunID  string
	Stages []StageResult

	// InputLines and InputBytes count what was admitted from the input.
	InputLines int
	InputBytes int64
	// Truncated is set when a cap cut the input short.
	Truncated bool
	// Warnings holds the non-fatal RESOURCE_LIMIT errors of the run.
	Warnings []*errors.AppError
}

// StageResult is the outcome of one worker.
type StageResult struct {
	Name     string
	ExitCode int
	LinesIn  int
	LinesOut int
	Duration time.Duration
}

// Failed returns the first stage that did not exit cleanly, if any.
func (r *Report) Failed() (StageResult, bool) {
	for _, s := range r.Stages {
		if s.ExitCode != 0 {
			return s, true
		}
	}
	return StageResult{}, false
}
