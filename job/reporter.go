package job

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Reporter writes Hadoop streaming status and counter updates. Hadoop reads
// them from a task's standard error. A nil Reporter discards everything.
type Reporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewReporter returns a reporter writing to w, or to os.Stderr when w is nil.
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = os.Stderr
	}
	return &Reporter{w: w}
}

// Status updates the task status. Only the first line of msg is sent.
func (r *Reporter) Status(msg string) error {
	if r == nil {
		return nil
	}
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintf(r.w, "reporter:status:%s\n", msg)
	return err
}

// IncrCounter adds amount to the group/counter pair. Zero amounts are skipped.
func (r *Reporter) IncrCounter(group, counter string, amount int64) error {
	if r == nil || amount == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintf(r.w, "reporter:counter:%s,%s,%d\n", group, counter, amount)
	return err
}

type reporterKey struct{}

// WithReporter returns a context carrying r.
func WithReporter(ctx context.Context, r *Reporter) context.Context {
	return context.WithValue(ctx, reporterKey{}, r)
}

// ReporterFrom returns the reporter stored in ctx. The result may be nil,
// which is safe to call.
func ReporterFrom(ctx context.Context) *Reporter {
	r, _ := ctx.Value(reporterKey{}).(*Reporter)
	return r
}
