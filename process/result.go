package process

import (
	"bytes"
	"time"
)

// Result is the outcome of a finished subprocess.
type Result struct {
	// Stdout is only captured by Run; with Start the caller reads the stream.
	Stdout []byte
	Stderr []byte
	// ExitCode is -1 when the process was killed by a signal.
	ExitCode int
	Duration time.Duration
}

// Code returns the exit code, or -1 when the process never ran.
func (r *Result) Code() int {
	if r == nil {
		return -1
	}
	return r.ExitCode
}

// StderrLines returns the non-blank lines of standard error.
func (r *Result) StderrLines() []string {
	if r == nil {
		return nil
	}
	var lines []string
	for _, line := range bytes.Split(r.Stderr, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			lines = append(lines, string(bytes.TrimRight(line, "\r")))
		}
	}
	return lines
}
